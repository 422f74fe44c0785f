package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
)

// Static errors for err113 compliance.
var (
	errFieldWithoutValue   = errors.New("field has no '='")
	errEmptyKey            = errors.New("field has an empty key")
	errUnterminatedQuote   = errors.New("unterminated quoted value")
	errTrailingText        = errors.New("unexpected text after quoted value")
	errMissingType         = errors.New("credential has no 'type' field")
	errNoIMCredential      = errors.New("no credential with type = InfrastructureManager")
	errInvalidKey          = errors.New("invalid field key")
	errInvalidEncoding     = errors.New("auth data is not valid UTF-8")
	errEmptyCredentialData = errors.New("no credentials found")
)

var secretKeys = map[string]struct{}{
	"password":    {},
	"token":       {},
	"secret_key":  {},
	"private_key": {},
	"proxy":       {},
}

// Field is one key = value pair of a credential.
type Field struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Credential is one auth file line: an ordered list of fields.
type Credential struct {
	fields []Field
}

// NewCredential builds a credential from fields, keeping their order.
func NewCredential(fields ...Field) (Credential, error) {
	for _, f := range fields {
		if f.Key == "" || strings.ContainsAny(f.Key, "=;\"\\\r\n") || strings.TrimSpace(f.Key) != f.Key ||
			strings.HasPrefix(f.Key, constants.AuthCommentPrefix) {
			return Credential{}, fmt.Errorf("%w: %w: %q", im.ErrAuthFileParse, errInvalidKey, f.Key)
		}
	}

	c := Credential{fields: append([]Field(nil), fields...)}
	if _, ok := c.Get(constants.AuthFieldType); !ok {
		return Credential{}, fmt.Errorf("%w: %w", im.ErrAuthFileParse, errMissingType)
	}

	return c, nil
}

// Fields returns a copy of the fields in order.
func (c Credential) Fields() []Field {
	return append([]Field(nil), c.fields...)
}

// Get returns the value of the first field named key.
func (c Credential) Get(key string) (string, bool) {
	for _, f := range c.fields {
		if f.Key == key {
			return f.Value, true
		}
	}

	return "", false
}

// Type returns the credential type.
func (c Credential) Type() string {
	v, _ := c.Get(constants.AuthFieldType)

	return v
}

// ID returns the optional credential id.
func (c Credential) ID() string {
	v, _ := c.Get("id")

	return v
}

// Redacted returns a copy with secret values masked.
func (c Credential) Redacted() Credential {
	out := Credential{fields: make([]Field, len(c.fields))}

	for i, f := range c.fields {
		if _, secret := secretKeys[strings.ToLower(f.Key)]; secret {
			f.Value = constants.MaskedSecret
		}

		out.fields[i] = f
	}

	return out
}

// String renders the credential as a single auth line.
func (c Credential) String() string {
	parts := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		parts = append(parts, f.Key+" "+constants.AuthKeyValueSeparator+" "+quoteValue(f.Value))
	}

	return strings.Join(parts, constants.AuthFieldSeparator+" ")
}

// CredentialSet is the immutable, ordered set of credentials sent with every
// request. It is safe for concurrent use.
type CredentialSet struct {
	credentials []Credential
	header      string
}

// NewCredentialSet validates creds and builds a set. At least one credential
// must be of type InfrastructureManager.
func NewCredentialSet(creds ...Credential) (*CredentialSet, error) {
	if len(creds) == 0 {
		return nil, fmt.Errorf("%w: %w", im.ErrAuthFileParse, errEmptyCredentialData)
	}

	found := false

	for _, c := range creds {
		if c.Type() == "" {
			return nil, fmt.Errorf("%w: %w", im.ErrAuthFileParse, errMissingType)
		}

		if c.Type() == constants.AuthTypeInfrastructureManager {
			found = true
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %w", im.ErrAuthFileParse, errNoIMCredential)
	}

	set := &CredentialSet{credentials: append([]Credential(nil), creds...)}

	lines := make([]string, 0, len(set.credentials))
	for _, c := range set.credentials {
		lines = append(lines, c.String())
	}

	set.header = strings.Join(lines, constants.AuthHeaderLineSeparator)

	return set, nil
}

// Load reads and parses the auth file at path.
func Load(path string) (*CredentialSet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path", im.ErrAuthFileNotFound)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", im.ErrAuthFileNotFound, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", im.ErrAuthFileNotFound, path)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- the path is supplied by the user on purpose
	if err != nil {
		return nil, fmt.Errorf("%w: %w", im.ErrAuthFileNotFound, err)
	}

	set, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return set, nil
}

// Parse parses auth file content: one credential per line, fields separated
// by ';', blank lines and '#' comments ignored.
func Parse(data string) (*CredentialSet, error) {
	if !utf8.ValidString(data) {
		return nil, fmt.Errorf("%w: %w", im.ErrAuthFileParse, errInvalidEncoding)
	}

	s := &scanner{src: strings.ReplaceAll(data, "\r", ""), recordSep: "\n", decodeNewlines: true}

	return s.credentialSet()
}

// ParseAuthorization parses a serialized Authorization header back into a set.
func ParseAuthorization(header string) (*CredentialSet, error) {
	s := &scanner{src: header, recordSep: constants.AuthHeaderLineSeparator}

	return s.credentialSet()
}

// Credentials returns a copy of the credentials in file order.
func (s *CredentialSet) Credentials() []Credential {
	return append([]Credential(nil), s.credentials...)
}

// Len returns the number of credentials.
func (s *CredentialSet) Len() int {
	return len(s.credentials)
}

// InfrastructureManager returns the first InfrastructureManager credential.
func (s *CredentialSet) InfrastructureManager() Credential {
	for _, c := range s.credentials {
		if c.Type() == constants.AuthTypeInfrastructureManager {
			return c
		}
	}

	return Credential{}
}

// Redacted returns the credentials with secrets masked.
func (s *CredentialSet) Redacted() []Credential {
	out := make([]Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, c.Redacted())
	}

	return out
}

// Serialize renders the set as a single-line Authorization header value.
func (s *CredentialSet) Serialize() string {
	return s.header
}

// Authorization returns the Authorization header value for a request.
func (s *CredentialSet) Authorization(_ context.Context) (string, error) {
	return s.header, nil
}

func quoteValue(v string) string {
	if v == "" {
		return v
	}

	if !strings.ContainsAny(v, ";\"\\\r\n") && strings.TrimSpace(v) == v {
		return v
	}

	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(v[i])
		}
	}

	b.WriteByte('"')

	return b.String()
}

// scanner tokenizes credential records. recordSep is a real newline for
// files and the two-character escape for headers.
type scanner struct {
	src            string
	pos            int
	line           int
	recordSep      string
	decodeNewlines bool
}

func (s *scanner) credentialSet() (*CredentialSet, error) {
	records, err := s.records()
	if err != nil {
		return nil, err
	}

	creds := make([]Credential, 0, len(records))

	for _, r := range records {
		c, err := NewCredential(r.fields...)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}

		creds = append(creds, c)
	}

	return NewCredentialSet(creds...)
}

type record struct {
	line   int
	fields []Field
}

func (s *scanner) records() ([]record, error) {
	var (
		out     []record
		current []Field
	)

	s.line = 1
	atStart := true

	flush := func() {
		if len(current) > 0 {
			out = append(out, record{line: s.line, fields: current})
		}

		current = nil
		atStart = true
		s.line++
	}

	for {
		s.skipBlanks()

		if s.pos >= len(s.src) {
			if len(current) > 0 {
				out = append(out, record{line: s.line, fields: current})
			}

			return out, nil
		}

		switch {
		case s.atRecordSep():
			s.pos += len(s.recordSep)
			flush()

			continue
		case s.src[s.pos] == ';':
			s.pos++

			continue
		case atStart && strings.HasPrefix(s.src[s.pos:], constants.AuthCommentPrefix):
			s.skipToRecordSep()

			continue
		}

		atStart = false

		f, err := s.field()
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", im.ErrAuthFileParse, s.line, err)
		}

		current = append(current, f)
	}
}

func (s *scanner) field() (Field, error) {
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != '=' && s.src[s.pos] != ';' && !s.atRecordSep() {
		s.pos++
	}

	key := strings.TrimSpace(s.src[start:s.pos])

	if s.pos >= len(s.src) || s.src[s.pos] != '=' {
		return Field{}, fmt.Errorf("%w: %q", errFieldWithoutValue, key)
	}

	if key == "" {
		return Field{}, errEmptyKey
	}

	s.pos++ // '='
	s.skipBlanks()

	if s.pos < len(s.src) && s.src[s.pos] == '"' {
		value, err := s.quoted()
		if err != nil {
			return Field{}, fmt.Errorf("%w for %q", err, key)
		}

		s.skipBlanks()

		if s.pos < len(s.src) && s.src[s.pos] != ';' && !s.atRecordSep() {
			return Field{}, fmt.Errorf("%w for %q", errTrailingText, key)
		}

		return Field{Key: key, Value: value}, nil
	}

	start = s.pos
	for s.pos < len(s.src) && s.src[s.pos] != ';' && !s.atRecordSep() {
		s.pos++
	}

	value := strings.TrimSpace(s.src[start:s.pos])
	if s.decodeNewlines {
		value = strings.ReplaceAll(value, `\n`, "\n")
	}

	return Field{Key: key, Value: value}, nil
}

func (s *scanner) quoted() (string, error) {
	var b strings.Builder

	s.pos++ // opening quote

	for s.pos < len(s.src) {
		c := s.src[s.pos]

		switch {
		case c == '"':
			s.pos++

			return b.String(), nil
		case c == '\\' && s.pos+1 < len(s.src):
			switch next := s.src[s.pos+1]; next {
			case '"', '\\':
				b.WriteByte(next)
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(c)
				b.WriteByte(next)
			}

			s.pos += 2
		case c == '\n':
			return "", errUnterminatedQuote
		default:
			b.WriteByte(c)
			s.pos++
		}
	}

	return "", errUnterminatedQuote
}

func (s *scanner) atRecordSep() bool {
	return strings.HasPrefix(s.src[s.pos:], s.recordSep)
}

func (s *scanner) skipBlanks() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *scanner) skipToRecordSep() {
	for s.pos < len(s.src) && !s.atRecordSep() {
		s.pos++
	}
}
