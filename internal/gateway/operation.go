package gateway

import (
	"github.com/rmitchellscott/pdfgateway/internal/staging"
)

// Operation names one RobotPDF capability.
type Operation string

const (
	OpOCR         Operation = "ocr"
	OpSplit       Operation = "split"
	OpMerge       Operation = "merge"
	OpImagesToPDF Operation = "images-to-pdf"
	OpPdfToExcel  Operation = "pdf-to-excel"
)

// ErrorStyle selects the failure body shape an operation replies with.
type ErrorStyle int

const (
	// StyleLabeled renders {error: "<Label> failed", message}.
	StyleLabeled ErrorStyle = iota
	// StyleFlag renders {success: false, error}.
	StyleFlag
)

const (
	msgUnavailable = "RobotPDF service is temporarily unavailable. Please try again later."
	msgGeneric     = "RobotPDF API error"
	msgBadResponse = "Unexpected response from RobotPDF API"
	msgTooLarge    = "File too large"

	ocrFaultMarker  = "OCR failed for all image enhancement versions"
	ocrFaultMessage = "Unable to extract text from this PDF. The document may be empty, corrupted, or contain only images without readable text."
)

// OperationSpec is everything that differs between operations. The pipeline
// is otherwise identical for all of them.
type OperationSpec struct {
	Op    Operation
	Label string

	// UpstreamPath is appended to the configured base URL.
	UpstreamPath string
	// PartName is the multipart name used both inbound and outbound.
	PartName string
	// Fields are the option fields forwarded as text parts, in order.
	Fields []string
	// LongTimeout selects the longer upstream timeout.
	LongTimeout bool
	// ForcePDFType sends .pdf files as application/pdf whatever the client declared.
	ForcePDFType bool

	Limits staging.Limits

	TimeoutMessage string
	InvalidMessage string // used for a 400 without an upstream message
	FaultMarker    string
	FaultMessage   string
	ErrorStyle     ErrorStyle
}

// MultiFile reports whether the operation accepts more than one upload.
func (s OperationSpec) MultiFile() bool { return s.Limits.MaxFiles != 1 }

var operations = map[Operation]OperationSpec{
	OpOCR: {
		Op:           OpOCR,
		Label:        "OCR",
		UpstreamPath: "/api/v1/ocr",
		PartName:     "file",
		Fields:       []string{"language"},
		ForcePDFType: true,
		Limits: staging.Limits{
			MinFiles:  1,
			MaxFiles:  1,
			UploadCap: 50 * staging.MB,
			Messages: staging.LimitMessages{
				Missing: "File missing!",
				TooMany: "Only one file may be uploaded",
			},
		},
		TimeoutMessage: "Request timed out. The file may be too large or the RobotPDF server is busy. Please try with a smaller file or try again later.",
		FaultMarker:    ocrFaultMarker,
		FaultMessage:   ocrFaultMessage,
		ErrorStyle:     StyleLabeled,
	},
	OpSplit: {
		Op:           OpSplit,
		Label:        "Split",
		UpstreamPath: "/api/v1/split",
		PartName:     "file",
		Fields:       []string{"pages", "split_mode"},
		Limits: staging.Limits{
			MinFiles:     1,
			MaxFiles:     1,
			UploadCap:    50 * staging.MB,
			RequirePages: true,
			Messages: staging.LimitMessages{
				Missing:       "File missing!",
				TooMany:       "Only one file may be uploaded",
				PagesRequired: "Pages parameter is required!",
			},
		},
		TimeoutMessage: "Request timed out. The file may be too large or the server is busy. Please try again.",
		InvalidMessage: "Invalid page range or file format.",
		ErrorStyle:     StyleLabeled,
	},
	OpMerge: {
		Op:           OpMerge,
		Label:        "Merge",
		UpstreamPath: "/api/v1/merge",
		PartName:     "files",
		Limits: staging.Limits{
			MinFiles:      2,
			MaxFiles:      10,
			MaxTotalBytes: 100 * staging.MB,
			UploadCap:     100 * staging.MB,
			Messages: staging.LimitMessages{
				TooFew:   "At least 2 PDF files are required for merging",
				TooMany:  "Maximum 10 PDF files allowed for merging",
				TooLarge: "Total file size exceeds 100MB limit",
			},
		},
		TimeoutMessage: "Request timed out. The files may be too large or the server is busy. Please try again.",
		InvalidMessage: "Invalid file format.",
		ErrorStyle:     StyleFlag,
	},
	OpImagesToPDF: {
		Op:           OpImagesToPDF,
		Label:        "Images to PDF",
		UpstreamPath: "/api/v1/images-to-pdf",
		PartName:     "files",
		Fields:       []string{"page_size", "orientation"},
		Limits: staging.Limits{
			MinFiles:      1,
			MaxFiles:      10,
			MaxTotalBytes: 100 * staging.MB,
			UploadCap:     100 * staging.MB,
			Messages: staging.LimitMessages{
				TooFew:   "At least 1 image file is required",
				TooMany:  "Maximum 10 image files allowed",
				TooLarge: "Total file size exceeds 100MB limit",
			},
		},
		TimeoutMessage: "Request timed out. The files may be too large or the server is busy. Please try again.",
		InvalidMessage: "Invalid file format. Supported formats: JPEG, PNG, TIFF, BMP, WebP",
		ErrorStyle:     StyleFlag,
	},
	OpPdfToExcel: {
		Op:           OpPdfToExcel,
		Label:        "PDF to Excel",
		UpstreamPath: "/api/v1/convert/pdf-to-excel",
		PartName:     "file",
		LongTimeout:  true,
		Limits: staging.Limits{
			MinFiles:      1,
			MaxFiles:      1,
			MaxTotalBytes: 50 * staging.MB,
			UploadCap:     50 * staging.MB,
			Messages: staging.LimitMessages{
				Missing:  "A PDF file is required",
				TooMany:  "Only one file may be uploaded",
				TooLarge: "File size exceeds 50MB limit",
			},
		},
		TimeoutMessage: "Request timed out. The file may be too large or complex. Please try again.",
		InvalidMessage: "Invalid PDF file or no tabular data found.",
		ErrorStyle:     StyleFlag,
	},
}

// Lookup returns the OperationSpec for op.
func Lookup(op Operation) (OperationSpec, bool) {
	s, ok := operations[op]
	return s, ok
}

// Operations lists every supported operation in a stable order.
func Operations() []OperationSpec {
	return []OperationSpec{
		operations[OpOCR],
		operations[OpSplit],
		operations[OpMerge],
		operations[OpImagesToPDF],
		operations[OpPdfToExcel],
	}
}
