package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Role is the closed set of user roles. Write access is decided through
// CanMutate rather than comparing the underlying string at call sites.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) CanMutate() bool {
	return r == RoleAdmin
}

type User struct {
	Id uuid.UUID `gorm:"primaryKey" json:"id"`

	Username       string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	HashedPassword string `gorm:"size:255;not null" json:"-"`
	Role           Role   `gorm:"size:20;not null;default:user" json:"role"`
}

type Item struct {
	Id int `gorm:"primaryKey;autoIncrement" json:"id"`

	Name        string  `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description *string `gorm:"size:255" json:"description"`
}

type RawMaterialTraceRecord struct {
	TraceId string `gorm:"column:traceid;size:32;primaryKey" json:"traceid"`

	MaterialBatchNo      string `gorm:"column:materialbatchno;size:20;not null" json:"materialbatchno"`
	TraceCode            string `gorm:"column:tracecode;size:36;uniqueIndex;not null" json:"tracecode"`
	SupplierId           string `gorm:"column:supplierid;size:20;not null" json:"supplierid"`
	PurchaseOrderId      string `gorm:"column:purchaseorderid;size:20;not null" json:"purchaseorderid"`
	IncomingInspectionId string `gorm:"column:incominginspectionid;size:32;not null" json:"incominginspectionid"`

	ReceiveTime     time.Time `gorm:"column:receivetime;not null" json:"receivetime"`
	StorageLocation string    `gorm:"column:storagelocation;size:50;not null" json:"storagelocation"`

	UsedRecords  datatypes.JSON  `gorm:"column:usedrecords;not null" json:"usedrecords"`
	RemainingQty decimal.Decimal `gorm:"column:remainingqty;type:decimal(10,2);not null" json:"remainingqty"`
	TraceStatus  string          `gorm:"column:tracestatus;size:15;not null" json:"tracestatus"`
}

func (RawMaterialTraceRecord) TableName() string {
	return "rawmaterialtracerecord"
}

type BatchTraceRelation struct {
	RelationId string `gorm:"column:relationid;size:32;primaryKey" json:"relationid"`

	ProductBatchNo    string `gorm:"column:productbatchno;size:20;not null" json:"productbatchno"`
	ProductTraceCode  string `gorm:"column:producttracecode;size:36;uniqueIndex;not null" json:"producttracecode"`
	MaterialTraceCode string `gorm:"column:materialtracecode;size:36;not null" json:"materialtracecode"`

	EquipmentId        string `gorm:"column:equipmentid;size:20;not null" json:"equipmentid"`
	ProcessSchemeId    string `gorm:"column:processschemeid;size:32;not null" json:"processschemeid"`
	InspectionPersonId string `gorm:"column:inspectionpersonid;size:20;not null" json:"inspectionpersonid"`

	InspectionTime time.Time `gorm:"column:inspectiontime;not null" json:"inspectiontime"`
	RelationStage  string    `gorm:"column:relationstage;size:30;not null" json:"relationstage"`
	RelationStatus string    `gorm:"column:relationstatus;size:15;not null" json:"relationstatus"`

	Material *RawMaterialTraceRecord `gorm:"foreignKey:MaterialTraceCode;references:TraceCode" json:"-"`
}

func (BatchTraceRelation) TableName() string {
	return "batchtracerelation"
}

type QualityRiskWarning struct {
	WarningId string `gorm:"column:warningid;size:32;primaryKey" json:"warningid"`

	WarningObject string `gorm:"column:warningobject;size:25;not null" json:"warningobject"`
	ObjectId      string `gorm:"column:objectid;size:32;not null" json:"objectid"`
	RiskType      string `gorm:"column:risktype;size:50;not null" json:"risktype"`
	RiskLevel     int    `gorm:"column:risklevel;not null" json:"risklevel"`

	TriggerCondition string    `gorm:"column:triggercondition;type:text;not null" json:"triggercondition"`
	TriggerTime      time.Time `gorm:"column:triggertime;not null" json:"triggertime"`

	HandlerId    string  `gorm:"column:handlerid;size:20;not null" json:"handlerid"`
	HandleStatus string  `gorm:"column:handlestatus;size:20;not null" json:"handlestatus"`
	HandleResult *string `gorm:"column:handleresult;type:text" json:"handleresult"`
}

func (QualityRiskWarning) TableName() string {
	return "qualityriskwarning"
}
