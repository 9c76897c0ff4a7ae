package apiclient

import (
	"bytes"
	"io"
	"mime/multipart"
)

// FilePart is an optional file attached to a multipart body
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a form body; fields keep their insertion order
type Multipart struct {
	keys   []string
	values map[string]string
	File   *FilePart
}

func NewMultipart() *Multipart {
	return &Multipart{values: make(map[string]string)}
}

// Set adds or replaces a text field
func (m *Multipart) Set(key, value string) *Multipart {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

func (m *Multipart) encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, k := range m.keys {
		if err := w.WriteField(k, m.values[k]); err != nil {
			return nil, "", err
		}
	}

	if m.File != nil && m.File.Content != nil {
		part, err := w.CreateFormFile(m.File.Field, m.File.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, m.File.Content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
