package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
)

// Payload is the body of a mutating request. It is either a JSONPayload or a
// MultipartPayload; encodePayload switches over both.
type Payload interface {
	payload()
}

// JSONPayload is sent as application/json.
type JSONPayload struct {
	Body interface{}
}

// MultipartPayload is sent as multipart/form-data, e.g. a profile update with an avatar.
type MultipartPayload struct {
	Fields map[string]string
	Files  []FilePart
}

// FilePart is one binary attachment of a MultipartPayload.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

func (JSONPayload) payload()      {}
func (MultipartPayload) payload() {}

// JSON wraps body as a JSONPayload.
func JSON(body interface{}) Payload {
	return JSONPayload{Body: body}
}

func encodePayload(p Payload) ([]byte, string, error) {
	switch v := p.(type) {
	case nil:
		return nil, "", nil
	case JSONPayload:
		raw, err := json.Marshal(v.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode json payload: %w", err)
		}
		return raw, "application/json", nil
	case MultipartPayload:
		return encodeMultipart(v)
	default:
		return nil, "", fmt.Errorf("unsupported payload %T", p)
	}
}

func encodeMultipart(p MultipartPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, p.Fields[name]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, file := range p.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", file.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
