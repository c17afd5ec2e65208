package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	appI18n "github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
)

func syllabusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "syllabus",
		Aliases: []string{"syllabi"},
		Short:   "Upload and inspect course syllabi",
	}
	cmd.AddCommand(syllabusListCmd(), syllabusShowCmd(), syllabusUploadCmd(), syllabusDeleteCmd())
	return cmd
}

func syllabusListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded syllabi",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			page, err := e.client.ListSyllabi(e.ctx, backend.ListOptions{
				Skip:  e.v.GetInt("skip"),
				Limit: e.v.GetInt("limit"),
			})
			if err != nil {
				return err
			}
			syllabi := render.Filter(page.Items, e.v.GetString("filter"), func(s model.Syllabus) string { return s.CourseName })
			if len(syllabi) == 0 {
				fmt.Println(appI18n.T(e.ctx, "NoSyllabi"))
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\t%s\t%s\t%s\n", appI18n.T(e.ctx, "CourseName"), appI18n.T(e.ctx, "Units"), appI18n.T(e.ctx, "Date"))
			for _, s := range syllabi {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.CourseName, len(s.Units), render.Date(s.CreatedAt))
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("filter", "", "Fuzzy filter on course name")
	f.Int("skip", 0, "Number of syllabi to skip")
	f.Int("limit", backend.DefaultLimit, "Maximum number of syllabi")
	return cmd
}

func syllabusShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show SYLLABUS_ID",
		Short: "Show the parsed units and topics of a syllabus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			s, err := e.client.GetSyllabus(e.ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\nID: %s\n", s.CourseName, s.ID)
			if d := render.Date(s.CreatedAt); d != "" {
				fmt.Printf("%s: %s\n", appI18n.T(e.ctx, "Date"), d)
			}
			for i, u := range s.Units {
				fmt.Printf("\n%d. %s\n", i+1, u.Title)
				for _, t := range u.Topics {
					fmt.Printf("   - %s\n", t)
				}
			}
			if e.v.GetBool("content") && s.Content != "" {
				fmt.Printf("\n%s\n", s.Content)
			}
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.Bool("content", false, "Also print the raw syllabus text")
	return cmd
}

func syllabusUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload COURSE_NAME",
		Short: "Upload a syllabus as text or as a PDF file",
		Example: `  qpgen syllabus upload "Computer Networks" --file cn.pdf
  qpgen syllabus upload "Compilers" --text "Unit 1: Lexical analysis ..."`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			courseName := strings.TrimSpace(args[0])
			if courseName == "" {
				return errors.New(appI18n.T(e.ctx, "CourseNameRequired"))
			}
			text, file := e.v.GetString("text"), e.v.GetString("file")

			var s *model.Syllabus
			switch {
			case text != "" && file != "":
				return errors.New("use either --text or --file, not both")
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				s, err = e.client.UploadSyllabusFile(e.ctx, courseName, filepath.Base(file), data)
				if err != nil {
					return err
				}
			case strings.TrimSpace(text) != "":
				s, err = e.client.UploadSyllabusText(e.ctx, courseName, text)
				if err != nil {
					return err
				}
			default:
				return errors.New(appI18n.T(e.ctx, "ContentRequired"))
			}

			if err := e.db.SetLastSyllabus(s.ID); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			fmt.Println(s.ID)
			fmt.Fprintf(os.Stderr, "%s (%s: %d)\n", appI18n.T(e.ctx, "SyllabusUploaded"), appI18n.T(e.ctx, "Units"), len(s.Units))
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.String("text", "", "Syllabus content as plain text")
	f.String("file", "", "Syllabus PDF file (at most 10MB)")
	return cmd
}

func syllabusDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete SYLLABUS_ID",
		Short: "Delete a syllabus on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.DeleteSyllabus(e.ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(appI18n.T(e.ctx, "SyllabusDeleted"))
			return nil
		},
	}
	addCommonFlags(cmd.Flags())
	return cmd
}
