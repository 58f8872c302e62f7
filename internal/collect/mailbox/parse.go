package mailbox

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"jobpilot/internal/collect/util"
	"jobpilot/internal/domain"
)

const (
	maxBodyBytes = 25 << 20
	maxPartBytes = 6 << 20
)

// Parse turns a raw RFC 822 message into a domain.Email. HTML-only messages
// get a plain text body derived from the HTML part. Messages without a
// Message-Id get a stable synthetic one.
func Parse(raw []byte) (domain.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return domain.Email{}, err
	}

	h := msg.Header
	e := domain.Email{
		MessageID: strings.TrimSpace(h.Get("Message-Id")),
		Sender:    decodeHeader(h.Get("From")),
		Subject:   decodeHeader(h.Get("Subject")),
	}
	if ds := h.Get("Date"); ds != "" {
		if t, err := mail.ParseDate(ds); err == nil {
			e.ReceivedAt = t.UTC()
		}
	}

	body, _ := io.ReadAll(io.LimitReader(msg.Body, maxBodyBytes))
	plain, htmlPart := textParts(h.Get("Content-Type"), h.Get("Content-Transfer-Encoding"), body)
	e.Body = strings.TrimSpace(plain)
	e.HTML = htmlPart
	if e.Body == "" && htmlPart != "" {
		e.Body = util.HTMLToText(htmlPart)
	}

	if e.MessageID == "" {
		e.MessageID = syntheticID(e.Sender, e.Subject, e.ReceivedAt)
	}
	return e, nil
}

// textParts returns the largest text/plain and text/html parts, walking
// nested multiparts.
func textParts(contentType, cte string, body []byte) (plain, htmlPart string) {
	cte = strings.ToLower(strings.TrimSpace(cte))
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(decodeTransfer(body, cte)), ""
	}
	mediaType = strings.ToLower(mediaType)

	if !strings.HasPrefix(mediaType, "multipart/") {
		s := string(decodeTransfer(body, cte))
		if mediaType == "text/html" {
			return "", s
		}
		return s, ""
	}

	boundary := params["boundary"]
	if boundary == "" {
		return string(decodeTransfer(body, cte)), ""
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		b, _ := io.ReadAll(io.LimitReader(p, maxBodyBytes))
		partCT := p.Header.Get("Content-Type")
		partCTE := p.Header.Get("Content-Transfer-Encoding")

		// multipart.Reader already undoes quoted-printable and drops the header
		pl, ht := textParts(partCT, partCTE, b)
		if strings.HasPrefix(strings.ToLower(partCT), "text/") || strings.HasPrefix(strings.ToLower(partCT), "multipart/") || partCT == "" {
			if len(pl) > len(plain) {
				plain = pl
			}
			if len(ht) > len(htmlPart) {
				htmlPart = ht
			}
		}
	}
	return plain, htmlPart
}

func decodeTransfer(b []byte, cte string) []byte {
	var r io.Reader
	switch cte {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, bytes.NewReader(bytes.TrimSpace(b)))
	case "quoted-printable":
		r = quotedprintable.NewReader(bytes.NewReader(b))
	default:
		return b
	}
	out, err := io.ReadAll(io.LimitReader(r, maxPartBytes))
	if err != nil && len(out) == 0 {
		return b
	}
	return out
}

func decodeHeader(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	out, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

func syntheticID(sender, subject string, at time.Time) string {
	sum := sha1.Sum([]byte(sender + "\x00" + subject + "\x00" + at.Format(time.RFC3339)))
	return "<" + hex.EncodeToString(sum[:]) + "@jobpilot.local>"
}
