package generator

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/dgallion1/docmerge/internal/doctree"
)

const (
	FormatEmail    = "eml"
	MediaTypeEmail = "message/rfc822"
)

// Email builds a multipart/alternative message with a plain text part and
// an HTML part. Headers come from the generator's defaults and may be
// overridden per document with meta tags, which are resolved like any
// other content:
//
//	<meta name="email-to" content="{{ customer.email }}">
//	<meta name="email-subject" content="Your order {{ order.id }}">
//
// The subject falls back to the document title.
type Email struct {
	From    string
	To      string
	Subject string

	html *HTML
}

func NewEmail(from string) *Email {
	return &Email{From: from, html: NewHTML()}
}

func (e *Email) Name() string   { return "email" }
func (e *Email) Format() string { return FormatEmail }

func (e *Email) Generate(_ context.Context, content []byte) (Artifact, error) {
	tree, err := doctree.FromHTML(content, "")
	if err != nil {
		return Artifact{}, err
	}
	meta, err := emailMeta(content)
	if err != nil {
		return Artifact{}, err
	}

	from, to, subject := e.From, e.To, e.Subject
	if v := meta["email-from"]; v != "" {
		from = v
	}
	if v := meta["email-to"]; v != "" {
		to = v
	}
	if v := meta["email-subject"]; v != "" {
		subject = v
	}
	if subject == "" {
		subject = tree.Title
	}
	if from == "" {
		return Artifact{}, fmt.Errorf("email: no sender address")
	}
	if to == "" {
		return Artifact{}, fmt.Errorf("email: no recipient address")
	}
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return Artifact{}, fmt.Errorf("email: parse from: %w", err)
	}
	toAddrs, err := mail.ParseAddressList(to)
	if err != nil {
		return Artifact{}, fmt.Errorf("email: parse to: %w", err)
	}

	page, err := e.html.document(content)
	if err != nil {
		return Artifact{}, err
	}

	// Identifiers derive from the content so the same input yields the same message.
	id := uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(to+"\x00"+subject+"\x00"), content...))
	domain := "docmerge.local"
	if at := strings.LastIndexByte(fromAddr.Address, '@'); at >= 0 {
		domain = fromAddr.Address[at+1:]
	}

	var msg bytes.Buffer
	body := multipart.NewWriter(&msg)
	if err := body.SetBoundary("docmerge-" + id.String()); err != nil {
		return Artifact{}, fmt.Errorf("email: %w", err)
	}

	recipients := make([]string, len(toAddrs))
	for i, a := range toAddrs {
		recipients[i] = a.String()
	}
	var header bytes.Buffer
	fmt.Fprintf(&header, "From: %s\r\n", fromAddr.String())
	fmt.Fprintf(&header, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&header, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&header, "Message-ID: <%s@%s>\r\n", id.String(), domain)
	header.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&header, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", body.Boundary())

	if err := writeQPPart(body, MediaTypeText, []byte(tree.PlainText())); err != nil {
		return Artifact{}, err
	}
	if err := writeQPPart(body, MediaTypeHTML, page); err != nil {
		return Artifact{}, err
	}
	if err := body.Close(); err != nil {
		return Artifact{}, fmt.Errorf("email: %w", err)
	}

	return Artifact{
		Format:    FormatEmail,
		MediaType: MediaTypeEmail,
		Generator: e.Name(),
		Data:      append(header.Bytes(), msg.Bytes()...),
		Meta:      map[string]string{"to": strings.Join(recipients, ", "), "subject": subject},
	}, nil
}

func writeQPPart(w *multipart.Writer, contentType string, data []byte) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("email: create part: %w", err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write(data); err != nil {
		return fmt.Errorf("email: write part: %w", err)
	}
	return qp.Close()
}

// emailMeta collects <meta name="email-*" content="..."> values.
func emailMeta(content []byte) (map[string]string, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	out := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, value string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = strings.ToLower(a.Val)
				case "content":
					value = strings.TrimSpace(a.Val)
				}
			}
			if strings.HasPrefix(name, "email-") {
				out[name] = value
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}
