package domain

import "io"

// Step identifies the pipeline stage that produced a label.
type Step int

const (
	StepFilenameRegex Step = 1
	StepFilenameFuzzy Step = 2
	StepContentRegex  Step = 3
	StepEmbedding     Step = 4
)

const (
	BasedOnFilename = "filename"
	BasedOnContent  = "file content"

	MatchTypeRegex     = "regex"
	MatchTypeFuzzy     = "fuzzy"
	MatchTypeEmbedding = "embedding + classifier"
)

// Failure codes are part of the public response contract.
const (
	CodeMissingFilePart  = "missing_file_part"
	CodeNoFileSelected   = "no_file_selected"
	CodeUnsupportedFile  = "unsupported_file"
	CodeMimeMismatch     = "mime_mismatch"
	CodeUnclassifiable   = "unclassifiable_file"
	CodeFileTooLarge     = "file_too_large"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeRateLimited      = "rate_limited"
	CodeOverloaded       = "overloaded"
	CodeInternal         = "internal_error"
)

type Success struct {
	Label          string         `json:"label"`
	Step           Step           `json:"step"`
	BasedOn        string         `json:"based_on"`
	MatchType      string         `json:"match_type"`
	AdditionalInfo map[string]any `json:"additional_info"`
	Confidence     float64        `json:"confidence"`
}

type Failure struct {
	Message string         `json:"message"`
	Action  string         `json:"action"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

// Result is the outcome of one pipeline run. Exactly one of Success and
// Failure is set.
type Result struct {
	Success *Success
	Failure *Failure
}

func Succeeded(s Success) Result {
	if s.AdditionalInfo == nil {
		s.AdditionalInfo = map[string]any{}
	}
	return Result{Success: &s}
}

func Failed(f Failure) Result {
	if f.Details == nil {
		f.Details = map[string]any{}
	}
	return Result{Failure: &f}
}

func (r Result) OK() bool { return r.Success != nil }

// TextMatches lists the literal substrings matched per content pattern group.
type TextMatches struct {
	Required   []string `json:"required"`
	Supporting []string `json:"supporting"`
	Negative   []string `json:"negative"`
}

func NewTextMatches() TextMatches {
	return TextMatches{
		Required:   []string{},
		Supporting: []string{},
		Negative:   []string{},
	}
}

// Prediction is the embedding fallback's best guess.
type Prediction struct {
	Label      string
	Confidence float64
	Model      string
}

// Upload is a received file. Content is read several times (sniffing,
// extraction, review storage), hence io.ReaderAt.
type Upload struct {
	Filename string
	Size     int64
	Content  io.ReaderAt
}

func (u Upload) Reader() *io.SectionReader {
	return io.NewSectionReader(u.Content, 0, u.Size)
}
