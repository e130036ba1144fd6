package tabular

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cellsanity/domain/core"
	"cellsanity/domain/telemetry"
	"cellsanity/internal"
	apperrors "cellsanity/internal/errors"
)

// Dataset is the fully materialized input of one validation run. The cycles
// table is metadata; only its row count is carried.
type Dataset struct {
	CycleRows    int
	Measurements []telemetry.Sample
	Impedance    []telemetry.ImpedanceRow
	Fingerprint  core.Hash
}

// Reader loads the cycles, measurements and impedance tables. Files may be
// CSV or xlsx; the extension decides. The first row of every table is a
// header and columns are located by name, not position.
type Reader struct {
	cyclesPath    string
	measPath      string
	impedancePath string
	log           *internal.Logger
}

// NewReader creates a reader over the three input table paths.
func NewReader(cyclesPath, measurementsPath, impedancePath string) *Reader {
	return &Reader{
		cyclesPath:    cyclesPath,
		measPath:      measurementsPath,
		impedancePath: impedancePath,
		log:           internal.NewLogger("tabular"),
	}
}

// Load materializes the full dataset in one pass. A missing table is a fatal
// precondition failure reported with its path before anything is parsed.
func (r *Reader) Load() (*Dataset, error) {
	for _, p := range []string{r.cyclesPath, r.measPath, r.impedancePath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, apperrors.PreconditionFailed(p)
		}
	}

	fingerprint, err := core.InputFingerprint(r.cyclesPath, r.measPath, r.impedancePath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fingerprint input tables")
	}

	cycleRows, err := r.readTable(r.cyclesPath)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read cycles table %s", r.cyclesPath)
	}

	measRows, err := r.readTable(r.measPath)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read measurements table %s", r.measPath)
	}
	samples, err := parseMeasurements(measRows)
	if err != nil {
		return nil, err
	}

	impRows, err := r.readTable(r.impedancePath)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to read impedance table %s", r.impedancePath)
	}
	impedance, err := parseImpedance(impRows)
	if err != nil {
		return nil, err
	}

	nCycles := len(cycleRows) - 1
	if nCycles < 0 {
		nCycles = 0
	}
	r.log.Info("loaded cycles=%d measurements=%d impedance=%d", nCycles, len(samples), len(impedance))

	return &Dataset{
		CycleRows:    nCycles,
		Measurements: samples,
		Impedance:    impedance,
		Fingerprint:  fingerprint,
	}, nil
}

// readTable reads a whole table as string cells, header row included.
func (r *Reader) readTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cr := csv.NewReader(f)
		cr.FieldsPerRecord = -1
		return cr.ReadAll()
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return f.GetRows(f.GetSheetName(0))
	default:
		return nil, fmt.Errorf("unsupported table format: %s", path)
	}
}

// Measurement and impedance column names follow the raw export schema.
const (
	colCellID      = "cell_id"
	colCycleIndex  = "cycle_index"
	colTimeIndex   = "t_index"
	colOpType      = "operation_type"
	colCurrent     = "Current_measured"
	colVoltage     = "Voltage_measured"
	colTemperature = "Temperature_measured"
	colCapacity    = "Capacity"
	colRe          = "Re"
	colRct         = "Rct"
)

func parseMeasurements(rows [][]string) ([]telemetry.Sample, error) {
	cols, err := headerIndex(rows, "measurements",
		colCellID, colCycleIndex, colTimeIndex, colOpType,
		colCurrent, colVoltage, colTemperature, colCapacity)
	if err != nil {
		return nil, err
	}

	samples := make([]telemetry.Sample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after header
		cycleIdx, err := intCell(row, cols[colCycleIndex])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}
		timeIdx, err := intCell(row, cols[colTimeIndex])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}
		current, err := floatCell(row, cols[colCurrent])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}
		voltage, err := floatCell(row, cols[colVoltage])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}
		temperature, err := floatCell(row, cols[colTemperature])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}
		// Capacity is only present on terminal samples; an empty cell is a
		// legitimate missing value, not a malformed row.
		capacity, err := optionalFloatCell(row, cols[colCapacity])
		if err != nil {
			return nil, core.NewRowError("measurements", rowNum, err)
		}

		samples = append(samples, telemetry.Sample{
			CellID:      stringCell(row, cols[colCellID]),
			CycleIndex:  cycleIdx,
			TimeIndex:   timeIdx,
			Op:          telemetry.ParseOpType(stringCell(row, cols[colOpType])),
			Current:     current,
			Voltage:     voltage,
			Temperature: temperature,
			Capacity:    capacity,
		})
	}
	return samples, nil
}

func parseImpedance(rows [][]string) ([]telemetry.ImpedanceRow, error) {
	cols, err := headerIndex(rows, "impedance", colCellID, colRe, colRct)
	if err != nil {
		return nil, err
	}

	out := make([]telemetry.ImpedanceRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		re, err := floatCell(row, cols[colRe])
		if err != nil {
			return nil, core.NewRowError("impedance", rowNum, err)
		}
		rct, err := floatCell(row, cols[colRct])
		if err != nil {
			return nil, core.NewRowError("impedance", rowNum, err)
		}
		out = append(out, telemetry.ImpedanceRow{
			CellID: stringCell(row, cols[colCellID]),
			Re:     re,
			Rct:    rct,
		})
	}
	return out, nil
}

// headerIndex maps required column names to positions from the header row.
func headerIndex(rows [][]string, table string, required ...string) (map[string]int, error) {
	if len(rows) == 0 {
		return nil, apperrors.InvalidInput(fmt.Sprintf("%s table has no header row", table))
	}
	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s table is missing column %q", table, name))
		}
	}
	return idx, nil
}

func stringCell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intCell(row []string, i int) (int, error) {
	s := stringCell(row, i)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

func floatCell(row []string, i int) (float64, error) {
	s := stringCell(row, i)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

// optionalFloatCell parses a float cell where emptiness means missing.
func optionalFloatCell(row []string, i int) (float64, error) {
	s := stringCell(row, i)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
