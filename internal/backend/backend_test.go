package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com", "://bad"} {
		if _, err := New(u, 0); err == nil {
			t.Errorf("New(%q) should fail", u)
		}
	}
	c, err := New("", 0)
	if err != nil {
		t.Fatalf("New default: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestGetPaper(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/question-paper/p1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":          "p1",
			"course_name": "Networks",
			"total_marks": 5,
			"questions": []map[string]any{
				{"id": "q1", "question_text": "Define TCP.", "marks": 5, "type": "short_answer"},
			},
			"generated_at": "2024-03-01T10:00:00.123456",
		})
	})

	p, err := c.GetPaper(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPaper: %v", err)
	}
	if p.CourseName != "Networks" || len(p.Questions) != 1 || p.Questions[0].Text != "Define TCP." {
		t.Errorf("unexpected paper: %+v", p)
	}
	if p.GeneratedAt.IsZero() {
		t.Error("generated_at not parsed")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail string", 404, `{"detail":"Question paper not found"}`, "Question paper not found"},
		{"detail list", 422, `{"detail":[{"loc":["body","total_marks"],"msg":"field required"},{"msg":"value is not a valid integer"}]}`, "field required; value is not a valid integer"},
		{"message", 500, `{"message":"boom"}`, "boom"},
		{"detail wins over message", 400, `{"detail":"bad","message":"ignored"}`, "bad"},
		{"no body", 503, ``, "request failed: Service Unavailable"},
		{"html body", 502, `<html>bad gateway</html>`, "request failed: Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.GetPaper(context.Background(), "p1")
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if be.Message != tt.want {
				t.Errorf("message = %q, want %q", be.Message, tt.want)
			}
			if be.StatusCode != tt.status || be.Kind != KindFetch {
				t.Errorf("status=%d kind=%s", be.StatusCode, be.Kind)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Syllabus not found"})
	})
	err := c.DeleteSyllabus(context.Background(), "s9")
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if !IsKind(err, KindDelete) {
		t.Errorf("kind of %v is not delete", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.GetAnswerKey(context.Background(), "p1")
	if !IsKind(err, KindTransport) {
		t.Errorf("err = %v, want transport error", err)
	}
}

func TestListPapersWrapsArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api/question-paper/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("skip") != "20" || q.Get("limit") != "10" || q.Get("syllabus_id") != "s1" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "a"}, {"id": "b"}})
	})

	page, err := c.ListPapers(context.Background(), ListOptions{Skip: 20, SyllabusID: "s1"})
	if err != nil {
		t.Fatalf("ListPapers: %v", err)
	}
	if page.Total != 2 || page.Skip != 20 || page.Limit != 10 || page.Items[1].ID != "b" {
		t.Errorf("page = %+v", page)
	}
}

func TestListSyllabiEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("syllabus_id") {
			t.Error("syllabus list should not send syllabus_id")
		}
		_, _ = io.WriteString(w, "null")
	})

	page, err := c.ListSyllabi(context.Background(), ListOptions{Limit: 5, SyllabusID: "ignored"})
	if err != nil {
		t.Fatalf("ListSyllabi: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("Items = %#v, want empty non-nil", page.Items)
	}
}

func TestGeneratePaper(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/question-paper/generate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req model.GenerationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.SyllabusID != "s1" || req.TotalMarks != 10 || len(req.GenerationRules.QuestionTypes) != 1 {
			t.Errorf("request = %+v", req)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "new", "total_marks": 10})
	})

	p, err := c.GeneratePaper(context.Background(), model.GenerationRequest{
		SyllabusID: "s1",
		TotalMarks: 10,
		GenerationRules: model.GenerationRules{
			QuestionTypes: []model.QuestionTypeRule{{Type: model.TypeEssay, Marks: 10, Count: 1}},
		},
	})
	if err != nil {
		t.Fatalf("GeneratePaper: %v", err)
	}
	if p.ID != "new" {
		t.Errorf("ID = %q", p.ID)
	}
}

func TestGeneratePaperRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Syllabus has no units"})
	})
	_, err := c.GeneratePaper(context.Background(), model.GenerationRequest{SyllabusID: "s1"})
	if !IsKind(err, KindSubmit) || err.Error() != "Syllabus has no units" {
		t.Errorf("err = %v", err)
	}
}

func TestDownloadPDF(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%binary\n")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/question-paper/p1/pdf" || r.URL.Query().Get("include_answers") != "true" {
			t.Errorf("%s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(pdf)
	})

	data, err := c.DownloadPDF(context.Background(), "p1", true)
	if err != nil {
		t.Fatalf("DownloadPDF: %v", err)
	}
	if string(data) != string(pdf) {
		t.Errorf("data = %q", data)
	}
	if got := PDFFileName("p1"); got != "question-paper-p1.pdf" {
		t.Errorf("PDFFileName = %q", got)
	}
}

func TestUploadSyllabusFile(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("course_name"); got != "Compilers" {
			t.Errorf("course_name = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		if hdr.Filename != "compilers.pdf" || string(body) != string(pdf) {
			t.Errorf("file %s = %q", hdr.Filename, body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "s1", "course_name": "Compilers"})
	})

	s, err := c.UploadSyllabusFile(context.Background(), "Compilers", "compilers.pdf", pdf)
	if err != nil {
		t.Fatalf("UploadSyllabusFile: %v", err)
	}
	if s.ID != "s1" {
		t.Errorf("ID = %q", s.ID)
	}
}

func TestCheckPDF(t *testing.T) {
	if err := CheckPDF([]byte("plain text, not a pdf")); !errors.Is(err, ErrNotPDF) {
		t.Errorf("text: err = %v", err)
	}
	big := append([]byte("%PDF-1.4\n"), make([]byte, MaxUploadBytes)...)
	if err := CheckPDF(big); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("big: err = %v", err)
	}
	if err := CheckPDF([]byte("%PDF-1.4\n")); err != nil {
		t.Errorf("pdf: err = %v", err)
	}
}

func TestUploadSyllabusText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"course_name":"Algebra"`) {
			t.Errorf("body = %s", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "s2", "course_name": "Algebra",
			"units": []map[string]any{{"id": "u1", "title": "Groups", "topics": []string{"Lagrange"}, "order": 1}},
		})
	})

	s, err := c.UploadSyllabusText(context.Background(), "Algebra", "Unit 1: Groups")
	if err != nil {
		t.Fatalf("UploadSyllabusText: %v", err)
	}
	if len(s.Units) != 1 || s.Units[0].Title != "Groups" {
		t.Errorf("units = %+v", s.Units)
	}
}
