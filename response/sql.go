package response

import "github.com/mickamy/tarantool-go/iproto"

// SQLDecodeRows decodes a SELECT/PRAGMA/VALUES SQL response's IPROTO_DATA
// rows into a slice of T. Each row decodes independently, the same way
// the original decodes every element of the DATA array.
func SQLDecodeRows[T any](value any) ([]T, error) {
	arr, err := dataArray(value)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(arr))
	for i, row := range arr {
		if err := convert(row, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SQLStmtID returns the SQL_STMT_ID field of a PREPARE response's OK
// body.
func SQLStmtID(value any) (uint64, error) {
	m, ok := value.(map[uint64]any)
	if !ok {
		return 0, typeMismatch("map", "OK response body")
	}
	v, ok := m[uint64(iproto.KeySQLStmtID)]
	if !ok {
		return 0, missingKey("SQL_STMT_ID")
	}
	var id uint64
	if err := convert(v, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// SQLRowCount returns the SQL_INFO.SQL_INFO_ROW_COUNT field of an
// INSERT/UPDATE/DELETE SQL response.
func SQLRowCount(value any) (uint64, error) {
	m, ok := value.(map[uint64]any)
	if !ok {
		return 0, typeMismatch("map", "OK response body")
	}
	infoValue, ok := m[uint64(iproto.KeySQLInfo)]
	if !ok {
		return 0, missingKey("SQL_INFO")
	}
	info, ok := infoValue.(map[uint64]any)
	if !ok {
		return 0, typeMismatch("map", "SQL_INFO")
	}
	rowCountValue, ok := info[uint64(iproto.KeySQLInfoRowCount)]
	if !ok {
		return 0, missingKey("SQL_INFO_ROW_COUNT")
	}
	var count uint64
	if err := convert(rowCountValue, &count); err != nil {
		return 0, err
	}
	return count, nil
}
