package taskloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	// ParseSnippetLimit is the number of leading runes of a failing reply kept
	// in a ParseError.
	ParseSnippetLimit = 1500

	reasoningCloseTag = "</think>"
)

// ParseError is a structured output failure. It keeps the decode error and a
// bounded prefix of the reply so that a retry prompt stays small.
type ParseError struct {
	Cause   error
	Snippet string
}

func newParseError(cause error, raw string) *ParseError {
	return &ParseError{
		Cause:   cause,
		Snippet: headRunes(raw, ParseSnippetLimit),
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind(), e.Cause.Error())
}

// Kind names the class of failure, e.g. "SyntaxError" or "ValidationError".
func (e *ParseError) Kind() string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		schemaErr *jsonschema.ValidationError
	)
	switch {
	case errors.As(e.Cause, &syntaxErr):
		return "SyntaxError"
	case errors.As(e.Cause, &typeErr):
		return "UnmarshalTypeError"
	case errors.As(e.Cause, &schemaErr):
		return "ValidationError"
	case errors.Is(e.Cause, ErrEmptyResponse):
		return "EmptyResponse"
	case errors.Is(e.Cause, io.ErrUnexpectedEOF):
		return "UnexpectedEOF"
	default:
		return "DecodeError"
	}
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Cause}
}

// StripReasoning drops a private reasoning block. Only the text after the last
// closing tag is kept.
func StripReasoning(text string) string {
	if idx := strings.LastIndex(text, reasoningCloseTag); idx >= 0 {
		text = text[idx+len(reasoningCloseTag):]
	}
	return strings.TrimSpace(text)
}

// ExtractFenced returns the content of the first ```json block, with the
// tag matched case-insensitively. The first untagged ``` block is used when
// there is no json block. Without either, the text is returned as is.
func ExtractFenced(text string) string {
	var untagged *fence
	for _, f := range fencedBlocks(text) {
		switch {
		case strings.EqualFold(f.tag, "json"):
			return f.body
		case f.tag == "" && untagged == nil:
			untagged = &f
		}
	}
	if untagged != nil {
		return untagged.body
	}
	return text
}

type fence struct {
	tag  string
	body string
}

// fencedBlocks splits text into its closed ``` blocks, in order.
func fencedBlocks(text string) []fence {
	var blocks []fence
	for {
		start := strings.Index(text, "```")
		if start < 0 {
			return blocks
		}
		rest := text[start+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			return blocks
		}
		body := rest[:end]
		text = rest[end+3:]

		var tag string
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			tag, body = strings.TrimSpace(body[:nl]), body[nl+1:]
		} else if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			tag, body = body[:4], body[4:]
		}
		blocks = append(blocks, fence{tag: tag, body: strings.TrimSpace(body)})
	}
}

// ParseJSON decodes a model reply into T. The reply is stripped of reasoning,
// narrowed to the first fenced block, and decoded as exactly one JSON value.
func ParseJSON[T any](raw string) (*T, error) {
	body := ExtractFenced(StripReasoning(raw))

	var out T
	if err := decodeStrict(body, &out); err != nil {
		return nil, newParseError(err, raw)
	}
	return &out, nil
}

func decodeStrict(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return goerr.Wrap(ErrEmptyResponse, "no structured content")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return goerr.New("unexpected trailing data after JSON value")
	}
	return nil
}

func headRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
