package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	sqcore "github.com/square/square-go-sdk/core"
)

// ProcessorError is implemented by processor API errors that carry a
// provider-side reference support can look up.
type ProcessorError interface {
	error
	Processor() string
	ProcessorStatus() int
	ProcessorReference() string
}

// ErrorDump flattens an error chain into log fields.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	Processor          string `json:"processor,omitempty"`
	ProcessorStatus    int    `json:"processor_status,omitempty"`
	ProcessorReference string `json:"processor_reference,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
}

// Fields returns the non-empty dump values keyed for structured logging.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key string, value any) {
		switch v := value.(type) {
		case string:
			if v == "" {
				return
			}
		case int:
			if v == 0 {
				return
			}
		case []string:
			if len(v) == 0 {
				return
			}
		}
		fields[key] = value
	}
	add("error_code", string(d.Code))
	add("error_chain", d.Chain)
	add("processor", d.Processor)
	add("processor_status", d.ProcessorStatus)
	add("processor_reference", d.ProcessorReference)
	add("pg_code", d.PGCode)
	add("pg_constraint", d.PGConstraint)
	add("pg_table", d.PGTable)
	add("pg_detail", d.PGDetail)
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var procErr ProcessorError
	var squareErr *sqcore.APIError
	switch {
	case errors.As(err, &procErr):
		d.Processor = procErr.Processor()
		d.ProcessorStatus = procErr.ProcessorStatus()
		d.ProcessorReference = procErr.ProcessorReference()
	case errors.As(err, &squareErr):
		d.Processor = "square"
		d.ProcessorStatus = squareErr.StatusCode
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGDetail = pgxErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGDetail = pqErr.Detail
	}
	return d
}
