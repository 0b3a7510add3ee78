package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
)

type fakeDocument struct {
	pages     []string
	textErr   error
	renderErr error
	closed    bool
	rendered  int
}

func (d *fakeDocument) NumPage() int { return len(d.pages) }

func (d *fakeDocument) Text(n int) (string, error) {
	if d.textErr != nil {
		return "", d.textErr
	}
	return d.pages[n], nil
}

func (d *fakeDocument) ImagePNG(n int, dpi float64) ([]byte, error) {
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	d.rendered++
	return []byte{byte(n)}, nil
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeOCR struct {
	pages []string
	err   error
	calls int
}

func (o *fakeOCR) Name() string { return "fake" }

func (o *fakeOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	o.calls++
	if o.err != nil {
		return "", o.err
	}
	return o.pages[int(image[0])], nil
}

func newTestExtractor(doc *fakeDocument, openErr error, ocr *fakeOCR, config Config) *TextExtractor {
	var engine port.OCREngine
	if ocr != nil {
		engine = ocr
	}

	e := NewTextExtractor(engine, config, zap.NewNop())
	e.open = func(data []byte) (document, error) {
		if openErr != nil {
			return nil, openErr
		}
		return doc, nil
	}
	return e
}

func TestTextExtractor_Extract(t *testing.T) {
	tests := []struct {
		name    string
		doc     *fakeDocument
		openErr error
		ocr     *fakeOCR
		config  Config
		want    string
	}{
		{
			name: "text layer across pages",
			doc:  &fakeDocument{pages: []string{"FACTURA A\r\n  OC: P01234  ", "TOTAL $ 100,00"}},
			want: "FACTURA A\nOC: P01234\nTOTAL $ 100,00",
		},
		{
			name:    "unreadable document",
			openErr: errors.New("cannot open document"),
			ocr:     &fakeOCR{},
			want:    "",
		},
		{
			name: "scanned document without OCR",
			doc:  &fakeDocument{pages: []string{"   ", ""}},
			want: "",
		},
		{
			name: "scanned document with OCR",
			doc:  &fakeDocument{pages: []string{"", ""}},
			ocr:  &fakeOCR{pages: []string{"OC P01234", "TOTAL 100"}},
			want: "OC P01234\nTOTAL 100",
		},
		{
			name: "text layer error falls back to OCR",
			doc:  &fakeDocument{pages: []string{"x"}, textErr: errors.New("broken xref")},
			ocr:  &fakeOCR{pages: []string{"CUIT 30-12345678-9"}},
			want: "CUIT 30-12345678-9",
		},
		{
			name:   "OCR page limit",
			doc:    &fakeDocument{pages: []string{"", "", ""}},
			ocr:    &fakeOCR{pages: []string{"uno", "dos", "tres"}},
			config: Config{MaxPages: 2},
			want:   "uno\ndos",
		},
		{
			name: "OCR failure",
			doc:  &fakeDocument{pages: []string{""}},
			ocr:  &fakeOCR{err: errors.New("tesseract: no language data")},
			want: "",
		},
		{
			name: "render failure",
			doc:  &fakeDocument{pages: []string{""}, renderErr: errors.New("out of memory")},
			ocr:  &fakeOCR{pages: []string{"never"}},
			want: "",
		},
		{
			name: "no pages",
			doc:  &fakeDocument{},
			ocr:  &fakeOCR{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(tt.doc, tt.openErr, tt.ocr, tt.config)

			got := e.Extract(context.Background(), []byte("%PDF-1.4"))

			assert.Equal(t, tt.want, got)
			if tt.doc != nil && tt.openErr == nil {
				assert.True(t, tt.doc.closed)
			}
		})
	}
}

func TestTextExtractor_TextLayerSkipsOCR(t *testing.T) {
	doc := &fakeDocument{pages: []string{"OC: P01234"}}
	ocr := &fakeOCR{pages: []string{"ignored"}}
	e := newTestExtractor(doc, nil, ocr, Config{})

	assert.Equal(t, "OC: P01234", e.Extract(context.Background(), nil))
	assert.Zero(t, ocr.calls)
	assert.Zero(t, doc.rendered)
}

func TestTextExtractor_RecoversFromPanic(t *testing.T) {
	e := NewTextExtractor(nil, Config{}, zap.NewNop())
	e.open = func(data []byte) (document, error) {
		panic("mupdf: invalid object")
	}

	assert.NotPanics(t, func() {
		assert.Equal(t, "", e.Extract(context.Background(), []byte("garbage")))
	})
}

func TestTextExtractor_CancelledContextStopsOCR(t *testing.T) {
	doc := &fakeDocument{pages: []string{"", ""}}
	ocr := &fakeOCR{pages: []string{"uno", "dos"}}
	e := newTestExtractor(doc, nil, ocr, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "", e.Extract(ctx, nil))
	assert.Zero(t, ocr.calls)
}

func TestTextExtractor_RealDocumentRejectsGarbage(t *testing.T) {
	e := NewTextExtractor(nil, Config{}, zap.NewNop())

	assert.Equal(t, "", e.Extract(context.Background(), []byte("not a pdf")))
}
