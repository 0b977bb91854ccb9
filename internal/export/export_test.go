package export

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/paperlay/paperlay/pkg/errors"
)

// stubCapturer records which pages were requested and can fail on demand.
type stubCapturer struct {
	pages  int
	failAt int // zero-based page index to fail on, -1 for never
	calls  []int
}

func (s *stubCapturer) PageCount() int { return s.pages }

func (s *stubCapturer) CapturePage(_ context.Context, index int) (image.Image, error) {
	s.calls = append(s.calls, index)
	if s.failAt >= 0 && index == s.failAt {
		return nil, stderrors.New("surface lost")
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 150))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

func TestExportWritesEveryPage(t *testing.T) {
	capt := &stubCapturer{pages: 3, failAt: -1}
	path := filepath.Join(t.TempDir(), "out.pdf")

	e := NewExporter(100, 150)
	if err := e.ExportFile(context.Background(), capt, path); err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}

	count, err := pdfapi.PageCountFile(path)
	if err != nil {
		t.Fatalf("failed to read back %s: %v", path, err)
	}
	if count != 3 {
		t.Fatalf("exported %d pages, want 3", count)
	}
	if want := []int{0, 1, 2}; !equalInts(capt.calls, want) {
		t.Fatalf("captured pages %v, want %v", capt.calls, want)
	}
}

func TestCaptureFailureAbortsWholeExport(t *testing.T) {
	capt := &stubCapturer{pages: 3, failAt: 1}
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")

	e := NewExporter(100, 150)
	err := e.ExportFile(context.Background(), capt, path)
	if err == nil {
		t.Fatal("expected an error when page 2 fails to capture")
	}
	if code := errors.GetCode(err); code != errors.ErrCodeCapture {
		t.Errorf("error code = %v, want %v", code, errors.ErrCodeCapture)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("a partial output file was left at the destination")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list output dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir not clean after abort: %v", entries)
	}

	// Page 3 must never be requested once page 2 has failed.
	if want := []int{0, 1}; !equalInts(capt.calls, want) {
		t.Fatalf("captured pages %v, want %v", capt.calls, want)
	}
}

func TestCanceledContextExportsNothing(t *testing.T) {
	capt := &stubCapturer{pages: 2, failAt: -1}
	path := filepath.Join(t.TempDir(), "out.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExporter(100, 150)
	if err := e.ExportFile(ctx, capt, path); err == nil {
		t.Fatal("expected an error for a canceled context")
	}
	if len(capt.calls) != 0 {
		t.Fatalf("captured pages %v after cancellation, want none", capt.calls)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("output file exists after a canceled export")
	}
}

func TestExportStreamStartsWithPDFMagic(t *testing.T) {
	capt := &stubCapturer{pages: 1, failAt: -1}
	var buf bytes.Buffer

	e := NewExporter(100, 150)
	e.Meta = Metadata{Title: "Stream test", Creator: "paperlay"}
	if err := e.Export(context.Background(), capt, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Fatalf("output does not start with the PDF magic, got %q", buf.String()[:8])
	}
}

func TestEmptyDocumentFails(t *testing.T) {
	capt := &stubCapturer{pages: 0, failAt: -1}
	e := NewExporter(100, 150)
	if err := e.Export(context.Background(), capt, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for a document with no pages")
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Midterm Exam 2024", "midterm_exam_2024.pdf"},
		{"collapsed whitespace", "  spaced \t out  ", "spaced_out.pdf"},
		{"path separators", `a/b\c`, "a_b_c.pdf"},
		{"accents kept", "Résumé", "résumé.pdf"},
		{"ligature normalized", "ﬁle", "file.pdf"},
		{"version dots kept", "Report v1.2", "report_v1.2.pdf"},
		{"empty", "", "document.pdf"},
		{"only punctuation", "!!!", "document.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.title); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func equalInts(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
