// Package reference maps a pipeline's logical reference parameters to the ids
// of files produced by a preparation execution.
package reference

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "resolver"

// MissingFile is a reference parameter whose filename was not found.
type MissingFile struct {
	Param    string
	Filename string
}

func (m MissingFile) Error() string {
	return fmt.Sprintf("%s: %s", m.Param, m.Filename)
}

// Resolve returns a param -> file id map covering every entry of fileMap.
//
// Filenames are indexed over the execution's declared inputs and then its step
// outputs. When the same filename occurs more than once, the first occurrence
// wins. Resolution is all-or-nothing: if any filename is absent, the error
// lists every missing entry and no partial map is returned.
func Resolve(execution *model.PrepExecution, fileMap model.ReferenceFileMap) (map[string]string, error) {
	index := indexByFilename(execution)

	resolved := make(map[string]string, len(fileMap))
	var missing []MissingFile
	for _, rf := range fileMap {
		id, ok := index[rf.Filename]
		if !ok {
			missing = append(missing, MissingFile{Param: rf.Param, Filename: rf.Filename})
			continue
		}
		resolved[rf.Param] = id
	}

	if len(missing) > 0 {
		var merr *multierror.Error
		for _, m := range missing {
			merr = exception.Append(merr, m)
		}
		merr.ErrorFormat = missingFormat
		return nil, exception.NewBatchError(moduleName, exception.KindUpstreamData, merr.Error(), merr)
	}

	logger.Debugf("Resolved %d reference file(s)", len(resolved))
	return resolved, nil
}

func indexByFilename(execution *model.PrepExecution) map[string]string {
	index := make(map[string]string)
	if execution == nil {
		return index
	}
	for _, f := range execution.CandidateFiles() {
		if f.Filename == "" {
			continue
		}
		if _, seen := index[f.Filename]; seen {
			logger.Debugf("Duplicate filename %q (id %s) ignored; keeping first occurrence", f.Filename, f.ID)
			continue
		}
		index[f.Filename] = f.ID.String()
	}
	return index
}

func missingFormat(es []error) string {
	lines := make([]string, len(es))
	for i, err := range es {
		lines[i] = "  - " + err.Error()
	}
	return "Missing required reference files:\n" + strings.Join(lines, "\n")
}
