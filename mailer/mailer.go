// Package mailer renders and delivers notification emails.
package mailer

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	"io"
	ttemplate "text/template"

	"licensepro-backend/mailer/templates"

	"github.com/pkg/errors"
)

var (
	// EmailTypeLicenseExpiry is the license expiry notification
	EmailTypeLicenseExpiry = "license_expiry"
	// EmailTypeSMTPTest is the canned message used to check mail settings
	EmailTypeSMTPTest = "smtp_test"
)

var (
	// EmailKindText is the type of text email
	EmailKindText = "text/plain"
	// EmailKindHTML is the type of html email
	EmailKindHTML = "text/html"
)

// Message is one rendered email addressed to a single recipient.
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// tmpl is the common interface shared between Template from
// html/template and text/template
type tmpl interface {
	Execute(wr io.Writer, data interface{}) error
}

// Templates holds the parsed email templates keyed by name and kind
type Templates map[string]tmpl

func getTemplateKey(name, kind string) string {
	return fmt.Sprintf("%s.%s", name, kind)
}

func (t Templates) get(name, kind string) (tmpl, error) {
	found, ok := t[getTemplateKey(name, kind)]
	if !ok {
		return nil, errors.Errorf("unsupported template '%s' with type '%s'", name, kind)
	}
	return found, nil
}

func (t Templates) set(name, kind string, parsed tmpl) {
	t[getTemplateKey(name, kind)] = parsed
}

// NewTemplates parses the embedded templates. The files are compiled into
// the binary, so a parse failure is a programming error.
func NewTemplates() Templates {
	T := Templates{}
	for _, name := range []string{EmailTypeLicenseExpiry, EmailTypeSMTPTest} {
		text, err := initTextTmpl(name)
		if err != nil {
			panic(errors.Wrapf(err, "initializing %s text template", name))
		}
		html, err := initHTMLTmpl(name)
		if err != nil {
			panic(errors.Wrapf(err, "initializing %s html template", name))
		}
		T.set(name, EmailKindText, text)
		T.set(name, EmailKindHTML, html)
	}
	return T
}

func initTextTmpl(name string) (tmpl, error) {
	content, err := templates.Files.ReadFile(name + ".txt")
	if err != nil {
		return nil, errors.Wrap(err, "reading template")
	}

	t, err := ttemplate.New(name).Parse(string(content))
	if err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}
	return t, nil
}

func initHTMLTmpl(name string) (tmpl, error) {
	content, err := templates.Files.ReadFile(name + ".html")
	if err != nil {
		return nil, errors.Wrap(err, "reading template")
	}

	t, err := htemplate.New(name).Parse(string(content))
	if err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}
	return t, nil
}

// Execute renders one template kind.
func (t Templates) Execute(name, kind string, data interface{}) (string, error) {
	found, err := t.get(name, kind)
	if err != nil {
		return "", errors.Wrap(err, "getting template")
	}

	buf := new(bytes.Buffer)
	if err := found.Execute(buf, data); err != nil {
		return "", errors.Wrap(err, "executing the template")
	}
	return buf.String(), nil
}

// Render produces both bodies of an email type.
func (t Templates) Render(name string, data interface{}) (html, text string, err error) {
	if html, err = t.Execute(name, EmailKindHTML, data); err != nil {
		return "", "", err
	}
	if text, err = t.Execute(name, EmailKindText, data); err != nil {
		return "", "", err
	}
	return html, text, nil
}
