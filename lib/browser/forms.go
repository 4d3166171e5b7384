package browser

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// formField is one successful control of a form.
type formField struct {
	name  string
	value string
	file  bool
}

// submit builds the request for form and navigates to it.
func (s *Session) submit(form *html.Node) error {
	method := strings.ToUpper(attrOr(form, "method", http.MethodGet))
	if method != http.MethodPost {
		method = http.MethodGet
	}
	action, err := s.resolve(attrOr(form, "action", s.Location().String()))
	if err != nil {
		return err
	}

	fields := s.formFields(form)
	values := url.Values{}
	for _, f := range fields {
		values.Add(f.name, f.value)
	}

	var req *http.Request
	switch {
	case method == http.MethodGet:
		u := *action
		u.RawQuery = values.Encode()
		req, err = http.NewRequest(method, u.String(), nil)
	case attrOr(form, "enctype", "") == "multipart/form-data":
		var body *bytes.Buffer
		var contentType string
		body, contentType, err = multipartBody(fields)
		if err == nil {
			req, err = http.NewRequest(method, action.String(), body)
			if err == nil {
				req.Header.Set("Content-Type", contentType)
			}
		}
	default:
		req, err = http.NewRequest(method, action.String(), strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("browser: build form request: %w", err)
	}

	s.submissions = append(s.submissions, Submission{Method: method, URL: req.URL.String(), Values: values})
	s.navigate("submit", req, -1)
	return nil
}

// formFields collects the successful controls of form in document order.
func (s *Session) formFields(form *html.Node) []formField {
	var fields []formField
	walkElements(form, func(n *html.Node) bool {
		name, ok := attr(n, "name")
		if !ok || name == "" {
			return true
		}
		if _, disabled := attr(n, "disabled"); disabled {
			return true
		}
		switch n.Data {
		case "input":
			typ, _ := attr(n, "type")
			switch typ {
			case "submit", "button", "reset", "image":
			case "checkbox", "radio":
				if _, checked := attr(n, "checked"); checked {
					fields = append(fields, formField{name: name, value: attrOr(n, "value", "on")})
				}
			case "file":
				for _, f := range s.doc.files[n] {
					fields = append(fields, formField{name: name, value: f, file: true})
				}
			default:
				fields = append(fields, formField{name: name, value: s.doc.Value(n)})
			}
		case "textarea", "select":
			fields = append(fields, formField{name: name, value: s.doc.Value(n)})
		}
		return true
	})
	return fields
}

// multipartBody encodes fields; selected files are sent by name with empty
// content since the headless browser has no file system access.
func multipartBody(fields []formField) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range fields {
		if f.file {
			if _, err := w.CreateFormFile(f.name, f.value); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func attrOr(n *html.Node, key, def string) string {
	if v, ok := attr(n, key); ok && v != "" {
		return v
	}
	return def
}
