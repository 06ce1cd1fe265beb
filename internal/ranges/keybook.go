package ranges

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// KeySheetNames lists the sheet names of an uploaded key workbook in
// workbook order, without a round trip to the grading service. Used to
// populate the sheet picker while a build is being set up offline.
func KeySheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}
