package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/im-client/pkg/im"
	"github.com/spf13/cobra"
)

// stdinReader is replaced in tests.
var stdinReader io.Reader = os.Stdin

// readDocument reads a RADL or TOSCA document from path, or from stdin when
// path is "-".
func readDocument(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdinReader)
		if err != nil {
			return "", fmt.Errorf("reading document from stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- the document path is supplied by the user
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	return string(data), nil
}

// documentContentType returns the content type named by flag, or the one
// detected from doc when flag is empty.
func documentContentType(flag, doc string) (im.ContentType, error) {
	if strings.TrimSpace(flag) == "" {
		return im.DetectContentType(doc), nil
	}

	return im.ParseContentType(flag)
}

// loadDocument reads the document and resolves its content type.
func loadDocument(path, contentType string) (string, im.ContentType, error) {
	doc, err := readDocument(path)
	if err != nil {
		return "", "", err
	}

	ct, err := documentContentType(contentType, doc)
	if err != nil {
		return "", "", err
	}

	return doc, ct, nil
}

func addDocumentFlags(cmd *cobra.Command, file, contentType *string, required bool) {
	cmd.Flags().StringVarP(file, "file", "f", "", "RADL or TOSCA document ('-' reads stdin)")
	cmd.Flags().StringVar(contentType, "content-type", "", "document content type (radl, tosca, json); detected when empty")

	if required {
		_ = cmd.MarkFlagRequired("file")
	}
}

// withClient builds the client and runs fn with an interrupt-aware context.
func withClient(fn func(ctx context.Context, client im.Client) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := clientFactory(ctx)
	if err != nil {
		return err
	}

	return fn(ctx, client)
}

// renderAck reports a successful action. The service body, if any, is shown
// after the message.
func renderAck(w io.Writer, message, body string) error {
	data := map[string]string{"result": "ok", "message": message}
	if body != "" {
		data["response"] = body
	}

	return render(w, renderer{
		data: data,
		plain: func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, message); err != nil {
				return err
			}

			if body != "" {
				_, err := fmt.Fprintln(w, body)

				return err
			}

			return nil
		},
	})
}
