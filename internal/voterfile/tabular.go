package voterfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row maps a header cell to the cell value in one record.
type Row map[string]string

// Table is the structural output of decoding a delimited file: the header
// cells in source order, and one Row per data line. No semantic validation
// has happened yet.
type Table struct {
	Header []string
	Rows   []Row
}

// DecodeTabular reads a byte stream as CSV in the declared text encoding and
// returns its rows keyed by the original header cells. An empty encoding
// name means UTF-8; a byte order mark always wins over the declared
// encoding.
func DecodeTabular(r io.Reader, encodingName string) (*Table, error) {
	decoded, err := decodeText(r, encodingName)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DecodeError{Reason: "file has no header row"}
	}
	if err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DecodeError{Reason: err.Error()}
		}

		row := make(Row, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func decodeText(r io.Reader, encodingName string) (string, error) {
	declared := unicode.UTF8
	displayName := "utf-8"
	if encodingName != "" {
		enc, err := htmlindex.Get(encodingName)
		if err != nil {
			return "", &DecodeError{Reason: fmt.Sprintf("unknown text encoding %q", encodingName)}
		}
		declared = enc
		displayName = encodingName
	}

	decoded, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(declared.NewDecoder())))
	if err != nil {
		return "", &DecodeError{Reason: err.Error()}
	}

	// The decoders substitute U+FFFD for undecodable input rather than
	// erroring; treat any substitution as a decode failure so binary junk
	// never reaches the validator.
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", &DecodeError{Reason: fmt.Sprintf("file contains bytes that are not valid %s", displayName)}
	}

	return string(decoded), nil
}

// IsBatchError reports whether err is one of the upload-fatal error kinds.
// Batch errors always leave persisted state unchanged.
func IsBatchError(err error) bool {
	var decodeErr *DecodeError
	var schemaErr *SchemaError
	var validationErr *ValidationError
	var duplicateErr *DuplicateEmailError
	var parseErr *ParseError
	return errors.As(err, &decodeErr) ||
		errors.As(err, &schemaErr) ||
		errors.As(err, &validationErr) ||
		errors.As(err, &duplicateErr) ||
		errors.As(err, &parseErr)
}
