package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaterialTraceService serves raw material trace records. The records are
// immutable once written: there is no update endpoint, a record is only ever
// created, read, or deleted.
type MaterialTraceService struct {
	db       *gorm.DB
	identity *auth.Identity
}

func (s *MaterialTraceService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{trace_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.identity.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Post("/", s.Create)
		r.Delete("/{trace_id}", s.Delete)
	})

	return r
}

type createTraceRecordRequest struct {
	TraceId              string                   `json:"traceid"`
	MaterialBatchNo      string                   `json:"materialbatchno"`
	TraceCode            string                   `json:"tracecode"`
	SupplierId           string                   `json:"supplierid"`
	PurchaseOrderId      string                   `json:"purchaseorderid"`
	IncomingInspectionId string                   `json:"incominginspectionid"`
	ReceiveTime          *time.Time               `json:"receivetime"`
	StorageLocation      string                   `json:"storagelocation"`
	UsedRecords          []map[string]interface{} `json:"usedrecords"`
	RemainingQty         *decimal.Decimal         `json:"remainingqty"`
	TraceStatus          string                   `json:"tracestatus"`
}

func (p *createTraceRecordRequest) validate() error {
	if err := checkRequiredField("traceid", p.TraceId, 32); err != nil {
		return err
	}
	if err := checkRequiredField("materialbatchno", p.MaterialBatchNo, 20); err != nil {
		return err
	}
	if err := checkRequiredField("tracecode", p.TraceCode, 36); err != nil {
		return err
	}
	if err := checkRequiredField("supplierid", p.SupplierId, 20); err != nil {
		return err
	}
	if err := checkRequiredField("purchaseorderid", p.PurchaseOrderId, 20); err != nil {
		return err
	}
	if err := checkRequiredField("incominginspectionid", p.IncomingInspectionId, 32); err != nil {
		return err
	}
	if err := checkRequiredField("storagelocation", p.StorageLocation, 50); err != nil {
		return err
	}
	if p.TraceStatus != "" {
		if err := schema.CheckValidTraceStatus(p.TraceStatus); err != nil {
			return err
		}
	}
	if p.RemainingQty != nil && p.RemainingQty.IsNegative() {
		return fmt.Errorf("field 'remainingqty' must not be negative")
	}
	return nil
}

func (s *MaterialTraceService) Create(w http.ResponseWriter, r *http.Request) {
	var params createTraceRecordRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	receiveTime := time.Now().UTC()
	if params.ReceiveTime != nil {
		receiveTime = *params.ReceiveTime
	}

	status := params.TraceStatus
	if status == "" {
		status = schema.TraceStatusInStock
	}

	qty := decimal.New(0, -2)
	if params.RemainingQty != nil {
		qty = *params.RemainingQty
	}

	usedRecords := params.UsedRecords
	if usedRecords == nil {
		usedRecords = []map[string]interface{}{}
	}
	usedRecordsJson, err := json.Marshal(usedRecords)
	if err != nil {
		writeError(w, CodedError(fmt.Errorf("error encoding usedrecords: %w", err), http.StatusBadRequest))
		return
	}

	record := schema.RawMaterialTraceRecord{
		TraceId:              params.TraceId,
		MaterialBatchNo:      params.MaterialBatchNo,
		TraceCode:            params.TraceCode,
		SupplierId:           params.SupplierId,
		PurchaseOrderId:      params.PurchaseOrderId,
		IncomingInspectionId: params.IncomingInspectionId,
		ReceiveTime:          receiveTime,
		StorageLocation:      params.StorageLocation,
		UsedRecords:          datatypes.JSON(usedRecordsJson),
		RemainingQty:         qty,
		TraceStatus:          status,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.RawMaterialTraceRecord
		result := txn.Limit(1).Find(&existing, "traceid = ? OR tracecode = ?", params.TraceId, params.TraceCode)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate trace record", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			if existing.TraceId == params.TraceId {
				return CodedError(fmt.Errorf("trace record with traceid '%v' already exists", params.TraceId), http.StatusBadRequest)
			}
			return CodedError(fmt.Errorf("trace record with tracecode '%v' already exists", params.TraceCode), http.StatusBadRequest)
		}

		if result := txn.Create(&record); result.Error != nil {
			// The pre-check above is a fast path, the unique constraints
			// are the final authority for concurrent creates.
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return CodedError(fmt.Errorf("trace record with this traceid or tracecode already exists"), http.StatusBadRequest)
			}
			slog.Error("sql error creating trace record", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("created raw material trace record", "traceid", record.TraceId, "tracecode", record.TraceCode)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, record)
}

func (s *MaterialTraceService) List(w http.ResponseWriter, r *http.Request) {
	var records []schema.RawMaterialTraceRecord

	result := s.db.Order("receivetime desc").Find(&records)
	if result.Error != nil {
		slog.Error("sql error listing trace records", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, records)
}

func (s *MaterialTraceService) Get(w http.ResponseWriter, r *http.Request) {
	traceId, err := utils.URLParam(r, "trace_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	record, err := schema.GetTraceRecord(traceId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrTraceRecordNotFound) {
			writeError(w, CodedError(err, http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, record)
}

func (s *MaterialTraceService) Delete(w http.ResponseWriter, r *http.Request) {
	traceId, err := utils.URLParam(r, "trace_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	result := s.db.Delete(&schema.RawMaterialTraceRecord{}, "traceid = ?", traceId)
	if result.Error != nil {
		slog.Error("sql error deleting trace record", "traceid", traceId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, CodedError(schema.ErrTraceRecordNotFound, http.StatusNotFound))
		return
	}

	slog.Info("deleted raw material trace record", "traceid", traceId)

	w.WriteHeader(http.StatusNoContent)
}
