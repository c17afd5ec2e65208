package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	appI18n "github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
	"github.com/Nagarajan13172/qpgen/internal/review"
	"github.com/Nagarajan13172/qpgen/internal/rules"
	"github.com/Nagarajan13172/qpgen/internal/store"
)

func paperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paper",
		Short: "Generate, review and download question papers",
	}
	cmd.AddCommand(
		paperListCmd(),
		paperShowCmd(),
		paperKeyCmd(),
		paperPDFCmd(),
		paperDeleteCmd(),
		paperGenerateCmd(),
		paperGradeCmd(),
		paperScoreCmd(),
	)
	return cmd
}

func paperListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			page, err := e.client.ListPapers(e.ctx, backend.ListOptions{
				Skip:       e.v.GetInt("skip"),
				Limit:      e.v.GetInt("limit"),
				SyllabusID: e.v.GetString("syllabus"),
			})
			if err != nil {
				return err
			}
			papers := render.Filter(page.Items, e.v.GetString("filter"), func(p model.Paper) string { return p.CourseName })
			if len(papers) == 0 {
				fmt.Println(appI18n.T(e.ctx, "NoPapers"))
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\t%s\t%s\t%s\n", appI18n.T(e.ctx, "CourseName"), appI18n.T(e.ctx, "TotalMarks"), appI18n.T(e.ctx, "Date"))
			for _, p := range papers {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.CourseName, p.TotalMarks, render.Date(p.Date()))
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("syllabus", "", "Only papers generated from this syllabus ID")
	f.String("filter", "", "Fuzzy filter on course name")
	f.Int("skip", 0, "Number of papers to skip")
	f.Int("limit", backend.DefaultLimit, "Maximum number of papers")
	return cmd
}

// fetcher returns the paper source for a command: the backend with local
// snapshots recorded, or local snapshots only.
func fetcher(e *env) review.Source {
	if e.v.GetBool("offline") {
		return store.NewOffline(e.db)
	}
	return store.NewRecorder(e.client, e.db)
}

// loadSession fetches a paper, and its answer key when evaluate is set, and
// waits for both. A failed answer key fetch is logged, not returned.
func loadSession(e *env, id string, evaluate bool) (*review.Session, error) {
	rs := review.New(fetcher(e), id, review.WithLogger(slog.Default()))
	rs.SetEvaluationMode(evaluate)
	rs.Start(e.ctx)
	rs.Wait()

	snap := rs.Snapshot()
	if snap.State == review.PaperError {
		rs.Close()
		return nil, snap.Err
	}
	if snap.KeyState == review.KeyError {
		slog.Warn(appI18n.T(e.ctx, "AnswerKeyUnavailable"), "paper_id", id)
	}
	for _, w := range rs.Warnings() {
		slog.Warn("answer key inconsistency", "kind", w.Kind, "question_id", w.QuestionID, "message", w.Message)
	}
	return rs, nil
}

func paperShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show PAPER_ID",
		Short: "Print a paper grouped into parts, optionally with answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rs, err := loadSession(e, args[0], e.v.GetBool("evaluate"))
			if err != nil {
				return err
			}
			defer rs.Close()

			var printer review.Printer
			switch format := e.v.GetString("format"); format {
			case "text":
				printer = render.NewText(e.ctx, os.Stdout)
			case "html":
				h, err := render.NewHTML()
				if err != nil {
					return err
				}
				printer = render.NewHTMLPrinter(e.ctx, h, os.Stdout)
			default:
				return fmt.Errorf("unknown format %q (want text or html)", format)
			}
			return rs.Print(printer)
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.BoolP("evaluate", "e", false, "Show the answer key next to each question")
	f.String("format", "text", "Output format (text, html)")
	f.Bool("offline", false, "Use the local snapshot instead of the backend")
	return cmd
}

func paperKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key PAPER_ID",
		Short: "Print the answer key of a paper",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			k, err := fetcher(e).GetAnswerKey(e.ctx, args[0])
			if err != nil {
				return err
			}
			return render.AnswerKey(e.ctx, os.Stdout, k)
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.Bool("offline", false, "Use the local snapshot instead of the backend")
	return cmd
}

func paperPDFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf PAPER_ID",
		Short: "Download a paper as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			id := args[0]
			out := e.v.GetString("output")
			if out == "" {
				out = backend.PDFFileName(id)
			}
			if out == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("refusing to write PDF to a terminal; use -o FILE or redirect stdout")
			}

			includeAnswers := e.v.GetBool("answers")
			data, err := e.client.DownloadPDF(e.ctx, id, includeAnswers)
			if err != nil {
				return err
			}

			if out == "-" {
				if _, err := os.Stdout.Write(data); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			} else {
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				if abs, err := filepath.Abs(out); err == nil {
					out = abs
				}
				fmt.Fprintf(os.Stderr, "%s (%s)\n", out, render.Bytes(int64(len(data))))
			}

			if _, err := e.db.RecordDownload(model.Download{
				PaperID:        id,
				IncludeAnswers: includeAnswers,
				Path:           out,
				SizeBytes:      int64(len(data)),
			}); err != nil {
				slog.Warn("failed to record download", "paper_id", id, "error", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.Bool("answers", false, "Include the answer key in the PDF")
	f.StringP("output", "o", "", "Output file (- for stdout; default question-paper-<id>.pdf)")
	return cmd
}

func paperDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete PAPER_ID",
		Short: "Delete a paper on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.DeletePaper(e.ctx, args[0]); err != nil {
				return err
			}
			if err := e.db.DeletePaper(args[0]); err != nil {
				slog.Warn("failed to delete paper snapshot", "id", args[0], "error", err)
			}
			fmt.Println(appI18n.T(e.ctx, "PaperDeleted"))
			return nil
		},
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

// ruleSetFromFlags builds the rule set from repeated --rule flags, falling
// back to the default rules.
func ruleSetFromFlags(cmd *cobra.Command, e *env) (*rules.RuleSet, error) {
	specs, err := cmd.Flags().GetStringArray("rule")
	if err != nil {
		return nil, err
	}
	rs := rules.Default()
	if len(specs) > 0 {
		parsed := make([]model.QuestionTypeRule, 0, len(specs))
		for _, spec := range specs {
			r, err := rules.ParseRule(spec)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, r)
		}
		if rs, err = rules.New(parsed...); err != nil {
			return nil, err
		}
	}

	rs.Difficulty = model.DifficultyDistribution{
		Easy:   e.v.GetInt("easy"),
		Medium: e.v.GetInt("medium"),
		Hard:   e.v.GetInt("hard"),
	}
	if ud := e.v.GetString("units"); ud != "" {
		rs.UnitDistribution = model.UnitDistribution(ud)
	}
	rs.IncludeAnswers = e.v.GetBool("answers")
	rs.RandomizeOptions = e.v.GetBool("randomize-options")
	return rs, nil
}

func paperGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Request a new paper from a syllabus",
		Example: `  qpgen paper generate --syllabus 64f0c2 \
    --rule multiple_choice:1:10 --rule short_answer:2:5 --rule essay:10:2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			syllabusID := e.v.GetString("syllabus")
			if syllabusID == "" {
				last, err := e.db.LastSyllabus()
				if err != nil {
					slog.Warn("failed to read last syllabus", "error", err)
				}
				syllabusID = last
			}

			rs, err := ruleSetFromFlags(cmd, e)
			if err != nil {
				return err
			}
			req, err := rs.ToRequest(syllabusID)
			if err != nil {
				return err
			}

			genID, err := e.db.RecordGeneration(req)
			if err != nil {
				slog.Warn("failed to record generation", "error", err)
			}
			if err := e.db.SetLastSyllabus(syllabusID); err != nil {
				slog.Warn("failed to remember syllabus", "error", err)
			}

			slog.Info("requesting paper", "syllabus_id", syllabusID, "total_marks", req.TotalMarks, "rules", rs.Len())
			paper, err := e.client.GeneratePaper(e.ctx, req)
			if genID != 0 {
				paperID := ""
				if paper != nil {
					paperID = paper.ID
				}
				if cerr := e.db.CompleteGeneration(genID, paperID, err); cerr != nil {
					slog.Warn("failed to complete generation record", "id", genID, "error", cerr)
				}
			}
			if err != nil {
				return err
			}
			if err := e.db.SavePaper(paper); err != nil {
				slog.Warn("failed to snapshot generated paper", "paper_id", paper.ID, "error", err)
			}

			fmt.Println(paper.ID)
			fmt.Fprintf(os.Stderr, "%s: %d, %s\n", paper.CourseName, paper.TotalMarks, appI18n.Tp(e.ctx, "QuestionsCount", len(paper.Questions)))
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringP("syllabus", "s", "", "Syllabus ID (default: the last one used)")
	f.StringArrayP("rule", "r", nil, "Question rule type:marks:count (repeatable; default: the standard four parts)")
	f.Int("easy", 33, "Percentage of easy questions")
	f.Int("medium", 34, "Percentage of medium questions")
	f.Int("hard", 33, "Percentage of hard questions")
	f.String("units", string(model.UnitsEqual), "Unit distribution (equal, weighted, random)")
	f.Bool("answers", true, "Generate an answer key")
	f.Bool("randomize-options", true, "Shuffle multiple choice options")
	return cmd
}

func paperGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade PAPER_ID QUESTION_ID",
		Short: "Suggest a mark for a candidate answer using an LLM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			grader, err := graderFromConfig(cmd)
			if err != nil {
				return err
			}
			if grader == nil {
				return errors.New("answer marking needs --llm-url or --llm-key")
			}

			answer, err := readAnswer(e)
			if err != nil {
				return err
			}

			paperID, questionID := args[0], args[1]
			rs, err := loadSession(e, paperID, true)
			if err != nil {
				return err
			}
			defer rs.Close()

			v, err := rs.View()
			if err != nil {
				return err
			}
			q, ok := findQuestion(v, questionID)
			if !ok {
				return fmt.Errorf("paper %s has no question %s", paperID, questionID)
			}
			entry, ok := v.Lookup(questionID)
			if !ok {
				return errors.New(appI18n.T(e.ctx, "AnswerKeyUnavailable"))
			}

			result, err := grader.GradeAnswer(e.ctx, q, entry, answer)
			if err != nil {
				return fmt.Errorf("LLM marking: %w", err)
			}
			id, err := e.db.AddGrade(model.Grade{
				PaperID:    paperID,
				QuestionID: questionID,
				Answer:     answer,
				LLMScore:   result.Score,
				MaxMarks:   result.MaxMarks,
				Feedback:   result.Feedback,
				Model:      result.Model,
			})
			if err != nil {
				return fmt.Errorf("store grade: %w", err)
			}

			fmt.Printf("#%d  %s: %g / %d\n%s\n", id, appI18n.T(e.ctx, "Score"), result.Score, result.MaxMarks, result.Feedback)
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	addLLMFlags(f)
	f.String("answer", "", "Candidate answer text")
	f.String("answer-file", "", "Read the candidate answer from a file (- for stdin)")
	f.Bool("offline", false, "Use the local snapshot instead of the backend")
	return cmd
}

func readAnswer(e *env) (string, error) {
	if a := strings.TrimSpace(e.v.GetString("answer")); a != "" {
		return a, nil
	}
	path := e.v.GetString("answer-file")
	if path == "" {
		return "", errors.New("an answer is required: use --answer or --answer-file")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// findQuestion returns the question with id from a composed view.
func findQuestion(v review.View, id string) (model.Question, bool) {
	for _, s := range v.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return model.Question{}, false
}

func paperScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score GRADE_ID SCORE",
		Short: "Override a suggested mark with the marker's score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gradeID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid grade ID %q", args[0])
			}
			score, err := strconv.ParseFloat(args[1], 64)
			if err != nil || score < 0 {
				return fmt.Errorf("invalid score %q", args[1])
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			return e.db.SetMarkerScore(gradeID, score)
		},
	}
	addCommonFlags(cmd.Flags())
	return cmd
}
