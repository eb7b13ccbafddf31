package models

import (
	"fmt"
	"strings"
)

// AcquisitionMode is how the dataset rows are sourced
type AcquisitionMode int

const (
	ModeTable AcquisitionMode = iota
	ModeQuery
)

func (m AcquisitionMode) String() string {
	if m == ModeQuery {
		return "QUERY"
	}
	return "TABLE"
}

// LookupType tells the lookup whether Query holds a table name or a statement
type LookupType string

const (
	LookupTable LookupType = "TABLE"
	LookupQuery LookupType = "QUERY"
)

// Dataset kinds carried on the draft for the later wizard steps
const (
	DsTypeImported = "IMPORTED"
	ImportTypeDB   = "DB"
)

// UnknownType is the physical type reported when the driver cannot name a column type
const UnknownType = "UNKNOWN"

// Connection represents a data source connection handle
type Connection struct {
	ID          string
	Implementor string
	Hostname    string
	Port        string
	Username    string
	Password    string
	URL         string
}

// Key identifies the server and account a connection points at
func (c Connection) Key() string {
	return fmt.Sprintf("%s://%s@%s:%s", strings.ToLower(c.Implementor), c.Username, c.Hostname, c.Port)
}

// Field represents a result column as reported by the data source
type Field struct {
	Name        string
	Type        string
	LogicalType string
}

// ColumnHeader represents a preview grid column
type ColumnHeader struct {
	FieldName   string
	DisplayType string
}

// RowRecord is one preview row keyed by field name
type RowRecord map[string]interface{}

// SelectableItem represents one entry of a searchable list
type SelectableItem struct {
	Index      int
	Label      string
	IsSelected bool
}

// SelectionSnapshot remembers the choices of the step so it can be restored
type SelectionSnapshot struct {
	Database string
	Table    string
	Query    string
	Headers  []ColumnHeader
	Rows     []RowRecord
}

// HasPreview reports whether the snapshot holds enough to redraw the step
func (s *SelectionSnapshot) HasPreview() bool {
	if s == nil {
		return false
	}
	return (s.Headers != nil && s.Rows != nil) || s.Query != ""
}

// DraftDataset is the dataset definition being built by the wizard
type DraftDataset struct {
	Connection      *Connection
	DatabaseName    string
	TableName       string
	QueryText       string
	AcquisitionMode AcquisitionMode
	Selection       *SelectionSnapshot
	DsType          string
	ImportType      string
	OriginFlowID    string
}

// LookupRequest is sent to the data source to fetch a preview
type LookupRequest struct {
	Connection  Connection
	Hostname    string
	Implementor string
	Username    string
	Password    string
	Port        string
	Database    string
	Query       string
	Type        LookupType
}

// LookupResult is the payload of a preview lookup
type LookupResult struct {
	Fields   []Field
	Data     []map[string]interface{}
	ErrorMsg *string
}

// PreviewStatus is the lifecycle of the preview area
type PreviewStatus int

const (
	PreviewEmpty PreviewStatus = iota
	PreviewLoading
	PreviewReady
	PreviewError
)

func (s PreviewStatus) String() string {
	switch s {
	case PreviewLoading:
		return "LOADING"
	case PreviewReady:
		return "READY"
	case PreviewError:
		return "ERROR"
	default:
		return "EMPTY"
	}
}

// PreviewState drives whether advancing is allowed and what the grid area shows
type PreviewState struct {
	Status       PreviewStatus
	ErrorMessage string
}

// Transport error codes, translated for display by the wizard
const (
	ErrCodeConnection = "dataset.error.connection"
	ErrCodeLookup     = "dataset.error.lookup"
	ErrCodeTimeout    = "dataset.error.timeout"
)

// TransportError is a failed lookup call
type TransportError struct {
	Code    string
	Details string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Details != "" {
		return e.Details
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// QueryExecutionError is a query problem reported by the backend on a successful call
type QueryExecutionError struct {
	Message string
}

func (e *QueryExecutionError) Error() string {
	return e.Message
}
