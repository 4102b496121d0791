package schema

import "fmt"

const (
	TraceStatusInStock  = "In Stock"
	TraceStatusInUse    = "In Use"
	TraceStatusConsumed = "Consumed"
	TraceStatusScrapped = "Scrapped"
)

func CheckValidTraceStatus(status string) error {
	if status == TraceStatusInStock || status == TraceStatusInUse || status == TraceStatusConsumed || status == TraceStatusScrapped {
		return nil
	}
	return fmt.Errorf("invalid tracestatus '%v'", status)
}

const (
	RelationStatusValid   = "Valid"
	RelationStatusInvalid = "Invalid"
	RelationStatusPending = "Pending Confirmation"
)

func CheckValidRelationStatus(status string) error {
	if status == RelationStatusValid || status == RelationStatusInvalid || status == RelationStatusPending {
		return nil
	}
	return fmt.Errorf("invalid relationstatus '%v'", status)
}

const (
	WarningObjectRawMaterial  = "Raw Material"
	WarningObjectSemiFinished = "Semi-Finished Product"
	WarningObjectFinished     = "Finished Product"
)

func CheckValidWarningObject(object string) error {
	if object == WarningObjectRawMaterial || object == WarningObjectSemiFinished || object == WarningObjectFinished {
		return nil
	}
	return fmt.Errorf("invalid warningobject '%v'", object)
}

const (
	HandleStatusPending    = "Pending Handling"
	HandleStatusInHandling = "In Handling"
	HandleStatusClosed     = "Closed"
)

func CheckValidHandleStatus(status string) error {
	if status == HandleStatusPending || status == HandleStatusInHandling || status == HandleStatusClosed {
		return nil
	}
	return fmt.Errorf("invalid handlestatus '%v'", status)
}

const (
	MinRiskLevel = 1
	MaxRiskLevel = 5

	DefaultRiskLevel = 3
)

func CheckValidRiskLevel(level int) error {
	if level >= MinRiskLevel && level <= MaxRiskLevel {
		return nil
	}
	return fmt.Errorf("invalid risklevel %v, must be between %v and %v", level, MinRiskLevel, MaxRiskLevel)
}
