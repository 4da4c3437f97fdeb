// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/pdiddy/research-assistant/internal/server"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve exposes search, paper browsing, question answering and text
generation over HTTP. It runs until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("cors") {
		cfg.Server.CORS, _ = cmd.Flags().GetBool("cors")
	}

	a, store, closeAll, err := newAssistant()
	if err != nil {
		return err
	}
	defer closeAll()

	proc, err := newPipeline("")
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg.Server, server.Deps{
		Store: store,
		Search: func(ctx context.Context, topic string, maxResults, yearsBack int) ([]*types.Paper, error) {
			out, err := searchTopic(ctx, topic, maxResults, yearsBack, io.Discard)
			return out.Papers, err
		},
		Processor: proc,
		Assistant: a,
		Log:       log.With("component", "server"),
	})
	return srv.ListenAndServe(cmd.Context())
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "listen address")
	serveCmd.Flags().Bool("cors", true, "send permissive CORS headers")
	rootCmd.AddCommand(serveCmd)
}
