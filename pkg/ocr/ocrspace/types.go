package ocrspace

import (
	"encoding/json"
	"strings"
)

// Response is the body of a parse/image call. See https://ocr.space/OCRAPI.
type Response struct {
	ParsedResults                []ParsedResult `json:"ParsedResults"`
	IsErroredOnProcessing        bool           `json:"IsErroredOnProcessing"`
	ErrorMessage                 Messages       `json:"ErrorMessage"`
	ErrorDetails                 string         `json:"ErrorDetails"`
	ProcessingTimeInMilliseconds string         `json:"ProcessingTimeInMilliseconds"`
}

// ParsedResult is one page of the document as segmented by the service.
type ParsedResult struct {
	FileParseExitCode int      `json:"FileParseExitCode"`
	ParsedText        *string  `json:"ParsedText"`
	ErrorMessage      Messages `json:"ErrorMessage"`
	ErrorDetails      string   `json:"ErrorDetails"`
}

// Messages accepts ErrorMessage both as a string and as an array of strings.
type Messages []string

func (m *Messages) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = list
		return nil
	}
	var one *string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one != nil && *one != "" {
		*m = Messages{*one}
	} else {
		*m = nil
	}
	return nil
}

func (m Messages) String() string {
	return strings.Join(m, "; ")
}
