package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParsePlain(t *testing.T) {
	raw := crlf(`From: Acme Recruiting <no-reply@greenhouse.io>
To: sam@example.com
Subject: Thank you for applying to Acme
Date: Tue, 03 Mar 2026 10:00:00 +0000
Message-Id: <abc@greenhouse.io>
Content-Type: text/plain; charset=utf-8

We received your application.
`)
	e, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "<abc@greenhouse.io>", e.MessageID)
	assert.Equal(t, "Acme Recruiting <no-reply@greenhouse.io>", e.Sender)
	assert.Equal(t, "Thank you for applying to Acme", e.Subject)
	assert.Equal(t, "We received your application.", e.Body)
	assert.True(t, e.ReceivedAt.Equal(time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)))
}

func TestParseMultipartPrefersPlain(t *testing.T) {
	raw := crlf(`From: jobs@lever.co
Subject: =?UTF-8?Q?Interview_invitation_=E2=80=93_Figma?=
Message-Id: <m1@lever.co>
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

V2UnZCBsaWtlIHRvIHNjaGVkdWxlIGFuIGludGVydmlldy4=
--b1
Content-Type: text/html; charset=utf-8

<p>We'd like to <b>schedule</b> an interview.</p>
--b1--
`)
	e, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Interview invitation – Figma", e.Subject)
	assert.Equal(t, "We'd like to schedule an interview.", e.Body)
	assert.Contains(t, e.HTML, "<b>schedule</b>")
}

func TestParseHTMLOnly(t *testing.T) {
	raw := crlf(`From: talent@acme.com
Subject: Update on your application
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: quoted-printable

<html><body><p>Unfortunately we will not be moving =
forward.</p><style>p{}</style></body></html>
`)
	e, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "Unfortunately we will not be moving forward.", e.Body)
	assert.True(t, strings.HasPrefix(e.MessageID, "<"), "synthetic id")
	assert.True(t, strings.HasSuffix(e.MessageID, "@jobpilot.local>"))

	again, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, e.MessageID, again.MessageID)
}

func TestParseGarbage(t *testing.T) {
	_, err := Parse([]byte("no headers here"))
	assert.Error(t, err)
}

func TestWanted(t *testing.T) {
	r := New(Config{SearchSubjectAny: []string{" ACME "}}, nil)
	assert.True(t, r.wanted(domain.Email{Subject: "Your application to Figma"}))
	assert.True(t, r.wanted(domain.Email{Subject: "Update from Acme"}))
	assert.False(t, r.wanted(domain.Email{Subject: "Weekly digest", Body: "deals"}))
}

func TestFetchRequiresCredentials(t *testing.T) {
	_, err := New(Config{Host: "imap.example.com"}, nil).Fetch(t.Context())
	assert.Error(t, err)
}

func TestNilBatchIsSafe(t *testing.T) {
	var b *Batch
	assert.NoError(t, b.Finalize(t.Context()))
	b.Close()
}
