package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/fivetwenty-io/im-client/internal/constants"
	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/tidwall/gjson"
)

// Static errors for err113 compliance.
var (
	errInvalidUTF8    = errors.New("body is not valid UTF-8")
	errEmptyBody      = errors.New("empty body")
	errInvalidJSON    = errors.New("body is not valid JSON")
	errMissingKey     = errors.New("missing key")
	errUnexpectedType = errors.New("unexpected JSON type")
	errTooManyURIs    = errors.New("expected a single URI")
	errNotURI         = errors.New("not an absolute URI")
)

// Keys of the IM JSON payloads.
const (
	keyURIList  = "uri-list"
	keyURI      = "uri"
	keyState    = "state.state"
	keyVMStates = "state.vm_states"
	keyOutputs  = "outputs"
	keyMessage  = "message"
)

// decoder turns a successful response body into a typed result.
type decoder[T any] func(body []byte, contentType string) (T, error)

// decodeText decodes a UTF-8 text body and trims the trailing newline. An
// empty body is valid.
func decodeText(body []byte, _ string) (string, error) {
	if !utf8.Valid(body) {
		return "", errInvalidUTF8
	}

	return strings.TrimRight(string(body), "\r\n"), nil
}

// decodeValue is decodeText for operations that must return something.
func decodeValue(body []byte, contentType string) (string, error) {
	text, err := decodeText(body, contentType)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", errEmptyBody
	}

	return text, nil
}

func isJSON(body []byte, contentType string) bool {
	switch {
	case strings.Contains(contentType, constants.MediaTypeJSON):
		return true
	case strings.Contains(contentType, constants.MediaTypeURIList):
		return false
	}

	trimmed := bytes.TrimSpace(body)

	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// decodeURIList accepts {"uri-list": [{"uri": ...}]} or one absolute URI per
// line. An empty body is an error; the service sends {"uri-list": []} for an
// empty list.
func decodeURIList(body []byte, contentType string) ([]im.ResourceURI, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}

	if !isJSON(body, contentType) {
		return decodeURILines(body)
	}

	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	list := gjson.GetBytes(body, keyURIList)
	if !list.Exists() {
		return nil, fmt.Errorf("%w: %q", errMissingKey, keyURIList)
	}

	if !list.IsArray() {
		return nil, fmt.Errorf("%w: %q is not an array", errUnexpectedType, keyURIList)
	}

	uris := make([]im.ResourceURI, 0, len(list.Array()))

	var err error

	list.ForEach(func(_, item gjson.Result) bool {
		uri := item.Get(keyURI)
		if uri.Type != gjson.String || strings.TrimSpace(uri.String()) == "" {
			err = fmt.Errorf("%w: %q in %s", errMissingKey, keyURI, item.Raw)

			return false
		}

		uris = append(uris, im.NewResourceURI(uri.String()))

		return true
	})

	if err != nil {
		return nil, err
	}

	return uris, nil
}

func decodeURILines(body []byte) ([]im.ResourceURI, error) {
	if !utf8.Valid(body) {
		return nil, errInvalidUTF8
	}

	uris := []im.ResourceURI{}

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if u, err := url.Parse(line); err != nil || !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", errNotURI, line)
		}

		uris = append(uris, im.NewResourceURI(line))
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading URI list: %w", err)
	}

	return uris, nil
}

// decodeSingleURI accepts {"uri": ...} or a single line.
func decodeSingleURI(body []byte, contentType string) (im.ResourceURI, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return im.ResourceURI{}, errEmptyBody
	}

	if isJSON(body, contentType) {
		if !gjson.ValidBytes(body) {
			return im.ResourceURI{}, errInvalidJSON
		}

		uri := gjson.GetBytes(body, keyURI)
		if uri.Type != gjson.String || strings.TrimSpace(uri.String()) == "" {
			return im.ResourceURI{}, fmt.Errorf("%w: %q", errMissingKey, keyURI)
		}

		return im.NewResourceURI(uri.String()), nil
	}

	uris, err := decodeURILines(body)
	if err != nil {
		return im.ResourceURI{}, err
	}

	switch len(uris) {
	case 0:
		return im.ResourceURI{}, errEmptyBody
	case 1:
		return uris[0], nil
	default:
		return im.ResourceURI{}, fmt.Errorf("%w, got %d", errTooManyURIs, len(uris))
	}
}

// decodeInfrastructureState decodes {"state": {"state": s, "vm_states": {id: s}}}.
func decodeInfrastructureState(body []byte, _ string) (im.InfrastructureState, error) {
	if !gjson.ValidBytes(body) {
		return im.InfrastructureState{}, errInvalidJSON
	}

	state := gjson.GetBytes(body, keyState)
	if state.Type != gjson.String {
		return im.InfrastructureState{}, fmt.Errorf("%w: %q", errMissingKey, keyState)
	}

	result := im.InfrastructureState{
		State:    im.ParseVMState(state.String()),
		VMStates: map[string]im.VMState{},
	}

	vmStates := gjson.GetBytes(body, keyVMStates)
	if vmStates.Exists() && !vmStates.IsObject() {
		return im.InfrastructureState{}, fmt.Errorf("%w: %q is not an object", errUnexpectedType, keyVMStates)
	}

	vmStates.ForEach(func(id, s gjson.Result) bool {
		result.VMStates[id.String()] = im.ParseVMState(s.String())

		return true
	})

	return result, nil
}

// decodeOutputs decodes {"outputs": {k: v}}. Non-string values are kept as
// compact JSON.
func decodeOutputs(body []byte, _ string) (map[string]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errInvalidJSON
	}

	outputs := gjson.GetBytes(body, keyOutputs)
	if !outputs.Exists() {
		return nil, fmt.Errorf("%w: %w: %q", im.ErrOutputsNotRetrieved, errMissingKey, keyOutputs)
	}

	result := map[string]string{}

	if outputs.Type == gjson.Null {
		return result, nil
	}

	if !outputs.IsObject() {
		return nil, fmt.Errorf("%w: %q is not an object", errUnexpectedType, keyOutputs)
	}

	outputs.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String {
			result[key.String()] = value.String()
		} else {
			var compact bytes.Buffer
			if err := json.Compact(&compact, []byte(value.Raw)); err != nil {
				result[key.String()] = value.Raw
			} else {
				result[key.String()] = compact.String()
			}
		}

		return true
	})

	return result, nil
}

// decodeServiceError builds a ServiceError from an IM error body, either
// {"message": ..., "code": ...} or plain text.
func decodeServiceError(statusCode int, reason string, body []byte) *im.ServiceError {
	serviceErr := &im.ServiceError{StatusCode: statusCode, Reason: reason}

	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, keyMessage); msg.Exists() {
			serviceErr.Message = strings.TrimSpace(msg.String())

			return serviceErr
		}
	}

	if utf8.Valid(body) {
		serviceErr.Message = strings.TrimSpace(string(body))
	}

	return serviceErr
}
