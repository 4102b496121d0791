package schema

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrItemNotFound        = errors.New("item not found")
	ErrTraceRecordNotFound = errors.New("raw material trace record not found")
	ErrRelationNotFound    = errors.New("batch trace relation not found")
	ErrWarningNotFound     = errors.New("quality risk warning not found")
	ErrDbAccessFailed      = errors.New("db access failed")
)

func GetUserByUsername(username string, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user by username", "username", username, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetItem(itemId int, db *gorm.DB) (Item, error) {
	var item Item

	result := db.First(&item, "id = ?", itemId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return item, ErrItemNotFound
		}
		slog.Error("sql error in get item", "item_id", itemId, "error", result.Error)
		return item, ErrDbAccessFailed
	}

	return item, nil
}

func GetTraceRecord(traceId string, db *gorm.DB) (RawMaterialTraceRecord, error) {
	var record RawMaterialTraceRecord

	result := db.First(&record, "traceid = ?", traceId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return record, ErrTraceRecordNotFound
		}
		slog.Error("sql error in get trace record", "traceid", traceId, "error", result.Error)
		return record, ErrDbAccessFailed
	}

	return record, nil
}

// TraceCodeExists reports whether a raw material trace record exists with the
// given tracecode. Batch trace relations may only reference codes for which
// this returns true.
func TraceCodeExists(traceCode string, db *gorm.DB) (bool, error) {
	var record RawMaterialTraceRecord

	result := db.Limit(1).Find(&record, "tracecode = ?", traceCode)
	if result.Error != nil {
		slog.Error("sql error checking if tracecode exists", "tracecode", traceCode, "error", result.Error)
		return false, ErrDbAccessFailed
	}

	return result.RowsAffected != 0, nil
}

func GetRelation(relationId string, db *gorm.DB) (BatchTraceRelation, error) {
	var relation BatchTraceRelation

	result := db.First(&relation, "relationid = ?", relationId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return relation, ErrRelationNotFound
		}
		slog.Error("sql error in get batch trace relation", "relationid", relationId, "error", result.Error)
		return relation, ErrDbAccessFailed
	}

	return relation, nil
}

func GetWarning(warningId string, db *gorm.DB) (QualityRiskWarning, error) {
	var warning QualityRiskWarning

	result := db.First(&warning, "warningid = ?", warningId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return warning, ErrWarningNotFound
		}
		slog.Error("sql error in get quality risk warning", "warningid", warningId, "error", result.Error)
		return warning, ErrDbAccessFailed
	}

	return warning, nil
}
