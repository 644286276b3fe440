package seats

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ghostpass/senate/internal/domain"
)

// SeatSystemPrompt is sent as the system instruction on every seat call.
const SeatSystemPrompt = `You are one independent seat on a review senate. Evaluate the submission on its merits.
Respond with a single JSON object and nothing else, using exactly these fields:
{
  "stance": "approve" | "revise" | "block" | "abstain",
  "score": number from 0 to 100,
  "confidence": number from 0 to 1,
  "risk_flags": [short lowercase tags],
  "key_points": [at most 7 strings],
  "counterpoints": [at most 5 strings],
  "recommended_edits": [strings]
}`

// JudgeSystemPrompt is sent as the system instruction on the synthesis call.
const JudgeSystemPrompt = `You are the presiding judge of a review senate. Several seats have voted on a submission.
Weigh their ballots by the weights shown and write one verdict.
Respond with a single JSON object:
{"final_answer": string, "reasoning": string, "disagreement_explanation": string}`

var funcs = template.FuncMap{
	"join": strings.Join,
	"truncate": func(s string, n int) string {
		r := []rune(s)
		if n <= 0 {
			return ""
		}
		if len(r) <= n {
			return s
		}
		if n > 3 {
			return string(r[:n-3]) + "..."
		}
		return string(r[:n])
	},
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
}

var seatTemplate = template.Must(template.New("seat").Funcs(funcs).Parse(
	`Submission to evaluate:
<<<
{{.Text}}
>>>
Return only the JSON verdict.`))

var judgeTemplate = template.Must(template.New("judge").Funcs(funcs).Parse(
	`Submission:
<<<
{{truncate .Text 8000}}
>>>

Ballots from {{len .Seats}} responding seats:
{{range .Seats}}
- {{.Name}} (weight {{.Weight}}): {{.Stance}}, score {{printf "%.0f" .Score}}, confidence {{printf "%.2f" .Confidence}}
{{- if .KeyPoints}}
  key points: {{join .KeyPoints "; "}}
{{- end}}
{{- if .RiskFlags}}
  risk flags: {{join .RiskFlags ", "}}
{{- end}}
{{- end}}

Weighted score: {{printf "%.1f" .WeightedScore}}. Leading stance: {{.Leading}}.
{{- if .SharedPoints}}
Points raised by several seats: {{join .SharedPoints "; "}}
{{- end}}
{{- if .Contested}}

The senate is CONTESTED (score deviation {{printf "%.1f" .Variance}}, {{.Blocks}} confident blocks).
Explain the disagreement explicitly in disagreement_explanation.
{{- end}}`))

type seatPromptData struct {
	Text string
}

type digestSeat struct {
	Name       string
	Weight     int
	Stance     domain.Stance
	Score      float64
	Confidence float64
	KeyPoints  []string
	RiskFlags  []string
}

type judgePromptData struct {
	Text          string
	Seats         []digestSeat
	WeightedScore float64
	Leading       domain.Stance
	SharedPoints  []string
	Contested     bool
	Variance      float64
	Blocks        int
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func seatPrompt(text string) (string, error) {
	return render(seatTemplate, seatPromptData{Text: text})
}

// digest lists online seats only.
func judgePrompt(text string, ballots []domain.Ballot, weights domain.Weights, out domain.JudgeOutput) (string, error) {
	data := judgePromptData{
		Text:          text,
		WeightedScore: out.WeightedScore,
		Leading:       out.LeadingStance,
		SharedPoints:  out.SharedPoints,
		Contested:     out.Contested,
		Variance:      out.ScoreVariance,
		Blocks:        out.BlocksCount,
	}
	for _, b := range ballots {
		if !b.Online() {
			continue
		}
		data.Seats = append(data.Seats, digestSeat{
			Name:       b.SeatName,
			Weight:     weights[b.SeatID],
			Stance:     b.Stance,
			Score:      b.Score,
			Confidence: b.Confidence,
			KeyPoints:  b.KeyPoints,
			RiskFlags:  b.RiskFlags,
		})
	}
	return render(judgeTemplate, data)
}
