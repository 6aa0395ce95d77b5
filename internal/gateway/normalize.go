package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// Result is the success body returned to callers. Absent fields are omitted.
type Result struct {
	Success    bool     `json:"success"`
	FileBase64 *string  `json:"fileBase64,omitempty"`
	Text       *string  `json:"text,omitempty"`
	FileName   string   `json:"fileName,omitempty"`
	FileSize   *int64   `json:"fileSize,omitempty"`
	FileCount  *int     `json:"fileCount,omitempty"`
	PageCount  *int     `json:"pageCount,omitempty"`
	Format     string   `json:"format,omitempty"`
	IsZip      *bool    `json:"isZip,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Language   string   `json:"language,omitempty"`

	// OCR replies keep the snake_case page count existing clients read.
	OCRPageCount *int `json:"page_count,omitempty"`
}

// Normalizer converts either reply form into a Result.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// upstreamFile is the common view of a JSON or binary reply.
type upstreamFile struct {
	data      []byte
	encoded   string
	size      int64
	pageCount *int
	format    string
	mediaType string // binary form only
	fromJSON  bool
}

// Normalize builds the Result for the operation from resp.
func (n *Normalizer) Normalize(spec OperationSpec, resp *GatewayResponse, files []staging.StagedFile, opts staging.Options) (*Result, error) {
	if spec.Op == OpOCR {
		return normalizeOCR(resp)
	}

	f, err := readFile(resp)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Success:    true,
		FileBase64: &f.encoded,
		FileSize:   &f.size,
		PageCount:  f.pageCount,
	}
	ts := n.now().UnixMilli()

	switch spec.Op {
	case OpMerge:
		count := len(files)
		res.FileName = fmt.Sprintf("merged_%d.pdf", ts)
		res.FileCount = &count

	case OpImagesToPDF:
		res.FileName = fmt.Sprintf("images_%d.pdf", ts)
		if res.PageCount == nil {
			count := len(files)
			res.PageCount = &count
		}

	case OpPdfToExcel:
		res.FileName = excelName(firstName(files), ts)
		res.Format = f.format
		if res.Format == "" {
			res.Format = "xlsx"
		}

	case OpSplit:
		ext := splitExt(opts.EffectiveSplitMode(), f)
		isZip := ext == "zip"
		res.FileName = splitName(firstName(files), ext)
		res.IsZip = &isZip
		res.Format = ext

	default:
		return nil, fmt.Errorf("no normalizer for operation %q", spec.Op)
	}

	return res, nil
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

func readFile(resp *GatewayResponse) (*upstreamFile, error) {
	if !isJSON(resp.ContentType) {
		mt, _, _ := mime.ParseMediaType(resp.ContentType)
		return &upstreamFile{
			data:      resp.Body,
			encoded:   base64.StdEncoding.EncodeToString(resp.Body),
			size:      int64(len(resp.Body)),
			mediaType: mt,
		}, nil
	}

	payload, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}

	encoded, _ := payload["file_base64"].(string)
	if encoded == "" {
		return nil, &UpstreamFormatError{Reason: "missing file_base64"}
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return nil, &UpstreamFormatError{Reason: "invalid file_base64", Err: err}
	}

	f := &upstreamFile{
		data:     data,
		encoded:  encoded,
		size:     int64(len(data)),
		fromJSON: true,
	}
	if size, ok := sizeField(payload, "file_size"); ok {
		f.size = size
	}
	if pc, ok := intField(payload, "page_count"); ok {
		f.pageCount = &pc
	}
	if s, ok := payload["format"].(string); ok {
		f.format = strings.ToLower(strings.TrimSpace(s))
	}
	return f, nil
}

func normalizeOCR(resp *GatewayResponse) (*Result, error) {
	payload, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}

	text, _ := payload["text"].(string)
	res := &Result{
		Success: true,
		Text:    &text,
	}
	if c, ok := floatField(payload, "confidence"); ok {
		res.Confidence = &c
	}
	if lang, ok := payload["language"].(string); ok {
		res.Language = lang
	}
	if pc, ok := intField(payload, "page_count"); ok {
		res.OCRPageCount = &pc
	}
	return res, nil
}

// decodePayload returns the object under "data" when there is one, otherwise
// the top-level object.
func decodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var top map[string]any
	if err := dec.Decode(&top); err != nil {
		return nil, &UpstreamFormatError{Reason: "invalid JSON", Err: err}
	}
	if top == nil {
		return nil, &UpstreamFormatError{Reason: "empty JSON body"}
	}
	if data, ok := top["data"].(map[string]any); ok {
		return data, nil
	}
	return top, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}

func floatField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case float64:
		return v, true
	}
	return 0, false
}

// intField accepts counts in [0, MaxInt32]; anything else, NaN included, is
// treated as absent.
func intField(m map[string]any, key string) (int, bool) {
	f, ok := floatField(m, key)
	if !ok || !(f >= 0 && f <= math.MaxInt32) {
		return 0, false
	}
	return int(f), true
}

func sizeField(m map[string]any, key string) (int64, bool) {
	f, ok := floatField(m, key)
	if !ok || !(f >= 0 && f < math.MaxInt64) {
		return 0, false
	}
	return int64(f), true
}

func firstName(files []staging.StagedFile) string {
	if len(files) == 0 {
		return ""
	}
	return files[0].OriginalName
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

func excelName(original string, ts int64) string {
	stem := pdfSuffix.ReplaceAllString(original, "")
	if stem == "" {
		return fmt.Sprintf("converted_%d.xlsx", ts)
	}
	return stem + ".xlsx"
}

func splitName(original, ext string) string {
	stem := strings.TrimSuffix(original, filepath.Ext(original))
	if stem == "" {
		stem = "document"
	}
	return stem + "_split." + ext
}

// splitExt picks the split output extension from what was actually returned.
// Per-page modes always produce an archive.
func splitExt(mode string, f *upstreamFile) string {
	if mode == staging.SplitIndividual || mode == staging.SplitAll {
		return "zip"
	}

	if f.fromJSON {
		switch f.format {
		case "pdf", "zip":
			return f.format
		}
	} else if f.mediaType == "application/pdf" {
		return "pdf"
	}

	if mimetype.Detect(f.data).Is("application/pdf") {
		return "pdf"
	}
	return "zip"
}
