package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FileRecord is a file attached to an execution, either as a declared input
// or as a downstream output of one of its process steps.
type FileRecord struct {
	ID       ID     `json:"id"`
	Filename string `json:"filename"`
}

// DataParam is one declared input of an execution. The API renders a single
// file as an object and multi-file inputs as an array; both end up in Files.
type DataParam struct {
	Name  string
	Files []FileRecord
}

// ProcessExecution is one step of an execution with the files it produced.
type ProcessExecution struct {
	ID             ID           `json:"id"`
	Name           string       `json:"name"`
	DownstreamData []FileRecord `json:"downstream_data"`
}

// Fileset groups the reference and input files of an execution.
type Fileset struct {
	ID ID `json:"id"`
}

// PrepExecution is a completed preparation execution whose outputs supply
// reference files for new submissions.
type PrepExecution struct {
	ID                ID
	DataParams        []DataParam
	ProcessExecutions []ProcessExecution
	Fileset           *Fileset
}

// FilesetID returns the fileset id, or the zero ID when the execution has none.
func (e *PrepExecution) FilesetID() ID {
	if e == nil || e.Fileset == nil {
		return ""
	}
	return e.Fileset.ID
}

// CandidateFiles lists every file of the execution: declared inputs first in
// the order the API listed them, then each process step's outputs in step order.
func (e *PrepExecution) CandidateFiles() []FileRecord {
	var files []FileRecord
	for _, p := range e.DataParams {
		files = append(files, p.Files...)
	}
	for _, proc := range e.ProcessExecutions {
		files = append(files, proc.DownstreamData...)
	}
	return files
}

type prepExecutionJSON struct {
	ID                ID                 `json:"id"`
	DataParams        json.RawMessage    `json:"data_params"`
	ProcessExecutions []ProcessExecution `json:"process_executions"`
	Fileset           *Fileset           `json:"fileset"`
}

// UnmarshalJSON decodes an execution record, keeping data_params in document order.
func (e *PrepExecution) UnmarshalJSON(data []byte) error {
	var raw prepExecutionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	params, err := decodeDataParams(raw.DataParams)
	if err != nil {
		return err
	}
	e.ID = raw.ID
	e.DataParams = params
	e.ProcessExecutions = raw.ProcessExecutions
	e.Fileset = raw.Fileset
	return nil
}

// decodeDataParams walks the data_params object token by token since a Go map
// would lose the key order that first-seen-wins resolution depends on.
func decodeDataParams(raw json.RawMessage) ([]DataParam, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("data_params must be an object")
	}

	var params []DataParam
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("data_params[%s]: %w", name, err)
		}
		files, err := decodeFileValue(value)
		if err != nil {
			return nil, fmt.Errorf("data_params[%s]: %w", name, err)
		}
		params = append(params, DataParam{Name: name, Files: files})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return params, nil
}

// decodeFileValue accepts a FileRecord object, an array of them, or null.
// Values of any other shape carry no file and are ignored.
func decodeFileValue(value json.RawMessage) ([]FileRecord, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return nil, nil
	}
	switch value[0] {
	case '{':
		var f FileRecord
		if err := json.Unmarshal(value, &f); err != nil {
			return nil, err
		}
		return []FileRecord{f}, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return nil, err
		}
		var files []FileRecord
		for _, item := range items {
			nested, err := decodeFileValue(item)
			if err != nil {
				return nil, err
			}
			files = append(files, nested...)
		}
		return files, nil
	default:
		return nil, nil
	}
}

// ReferenceFile binds a logical pipeline parameter to the filename expected
// among the preparation execution's files.
type ReferenceFile struct {
	Param    string
	Filename string
}

// ReferenceFileMap is the ordered logical-name to filename table of a pipeline.
type ReferenceFileMap []ReferenceFile

// Params returns the logical parameter names in table order.
func (m ReferenceFileMap) Params() []string {
	params := make([]string, len(m))
	for i, rf := range m {
		params[i] = rf.Param
	}
	return params
}
