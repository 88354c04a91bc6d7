// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package form

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/griddeck/griddeck/baserow"
)

// FileInput is one file accepted by a file control.
type FileInput struct {
	Name    string
	Content []byte
}

// UploadAll uploads the files of one change event in parallel and, only once
// all uploads have settled successfully, returns a new draft with the file
// references merged into the named field in input order. If any upload
// fails, the error is returned and the draft is left untouched, including
// files accepted by earlier change events.
func UploadAll(ctx context.Context, client baserow.Client, draft Draft, fieldName string, inputs []FileInput) (Draft, error) {
	if len(inputs) == 0 {
		return draft, nil
	}

	refs := make([]baserow.FileRef, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input FileInput) {
			defer wg.Done()
			ref, _, err := client.UploadFile(ctx, input.Name, bytes.NewReader(input.Content))
			if err != nil {
				errs[i] = fmt.Errorf("upload %q: %w", input.Name, err)
				return
			}
			refs[i] = ref
		}(i, input)
	}
	wg.Wait()

	var failures []string
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	if len(failures) > 0 {
		return draft, fmt.Errorf("%s", strings.Join(failures, "; "))
	}

	// single atomic merge after all uploads settled
	existing := fileList(draft.Get(fieldName))
	merged := make([]baserow.FileRef, 0, len(existing)+len(refs))
	merged = append(merged, existing...)
	merged = append(merged, refs...)
	return draft.Set(fieldName, merged), nil
}
