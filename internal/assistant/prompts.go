// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assistant

import (
	"bytes"
	"text/template"
)

// paperView is the prompt-facing rendering of one paper.
type paperView struct {
	Num      int
	Title    string
	Authors  string
	Year     string
	Abstract string
	Sections []sectionView
}

type sectionView struct {
	Name string
	Text string
}

var multiPaperQATmpl = template.Must(template.New("qa").Parse(`You are an academic research assistant. Answer the question using only the research papers below.{{if .Topic}} The papers belong to the topic "{{.Topic}}".{{end}}

Cite every claim you make in the form [Paper N - Title, Section X], where N is the paper number below and X is the section the information comes from. If the papers do not contain the answer, say so clearly.

Question: {{.Question}}

Papers:
{{range .Papers}}
Paper {{.Num}}:
Title: {{.Title}}
Authors: {{.Authors}}
Year: {{.Year}}
Abstract: {{.Abstract}}
{{range .Sections}}{{.Name}}: {{.Text}}
{{end}}{{end}}
Provide a complete and accurate answer with citations.
`))

var singlePaperQATmpl = template.Must(template.New("single").Parse(`You are an academic research assistant. I will provide you with details from a research paper, and you need to answer a specific question about it. Please only use information contained in this paper to answer the question. If the answer is not found in the paper, state that clearly.

Paper Details:
Title: {{.Paper.Title}}
Authors: {{.Paper.Authors}}
Year: {{.Paper.Year}}
Abstract: {{.Paper.Abstract}}

Question: {{.Question}}

Paper Content:
{{.Content}}

Please provide a complete and accurate answer based only on the information in this paper.
`))

var futureWorkTmpl = template.Must(template.New("future").Parse(`Generate future research ideas for the topic: {{.Topic}} based on research from the past {{.YearsBack}} years.`))

var researchIdeasTmpl = template.Must(template.New("ideas").Parse(`You are an expert academic researcher in the field of {{.Topic}}. Based on the recent papers I'll provide, generate 5-7 promising ideas for future research directions. These ideas should build upon the current state of the art and address gaps or open challenges in the field.

Recent papers in {{.Topic}}:
{{range .Papers}}
Paper {{.Num}}:
Title: {{.Title}}
Authors: {{.Authors}}
Year: {{.Year}}
Abstract: {{.Abstract}}
{{end}}
For each research idea:
1. Provide a clear title for the potential research
2. Explain the key concept and approach
3. Describe why this direction is promising and how it addresses limitations in current research
4. Suggest potential methods or techniques that could be used
5. Note potential challenges or obstacles to overcome

Focus on novel, impactful ideas that could lead to significant advancements. Be specific rather than general.
`))

var reviewPaperTmpl = template.Must(template.New("review").Parse(`You are an expert academic researcher tasked with writing a comprehensive review paper on {{.Topic}}. Based on the papers I'll provide, create a well-structured review paper that summarizes the current state of research and suggests future directions.

The review paper should have the following sections:
1. Title: An appropriate title for a review paper on {{.Topic}}
2. Abstract: A concise summary of the review paper
3. Introduction: Overview of the field and importance of the topic
4. Background: Key concepts and foundational knowledge
5. Current Approaches: Analysis of the main approaches and methods in the field
6. Comparative Analysis: Comparison of different methods and their strengths/weaknesses
7. Open Challenges: Discussion of unsolved problems and limitations
8. Future Directions: Promising research directions and opportunities
9. Conclusion: Summary of the state of the field and outlook

Papers to review:
{{range .Papers}}
Paper {{.Num}}:
Title: {{.Title}}
Authors: {{.Authors}}
Year: {{.Year}}
Abstract: {{.Abstract}}
{{range .Sections}}{{.Name}}: {{.Text}}
{{end}}{{end}}
Write a scholarly review paper based on these papers. Use academic language and be specific about methods, findings, and gaps in the research. When referencing specific papers, cite them by their number (e.g., [1]).
`))

var improvementPlanTmpl = template.Must(template.New("plan").Parse(`You are a research director at a top institution, specializing in {{.Topic}}. Your task is to develop a comprehensive improvement plan that builds upon existing research to make significant advances in the field.

Based on the recent papers I'll provide, create a strategic research and development plan that:
1. Identifies key limitations and gaps in current approaches
2. Proposes novel solutions and methodologies to address these limitations
3. Outlines concrete steps for implementing these improvements
4. Describes expected outcomes and potential impact

Recent papers in {{.Topic}}:
{{range .Papers}}
Paper {{.Num}}:
Title: {{.Title}}
Authors: {{.Authors}}
Year: {{.Year}}
Abstract: {{.Abstract}}
Key Findings:{{range .Sections}}
{{.Name}}: {{.Text}}{{end}}
{{end}}
Your improvement plan should be innovative yet practical, with specific technical details rather than general suggestions. The plan should be well-structured with clear sections and actionable items. When referencing specific papers, cite them by their number (e.g., [1]).
`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
