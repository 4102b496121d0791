package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type BatchRelationService struct {
	db       *gorm.DB
	identity *auth.Identity
}

func (s *BatchRelationService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{relation_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.identity.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Post("/", s.Create)
		r.Delete("/{relation_id}", s.Delete)
	})

	return r
}

type createRelationRequest struct {
	RelationId         string     `json:"relationid"`
	ProductBatchNo     string     `json:"productbatchno"`
	ProductTraceCode   string     `json:"producttracecode"`
	MaterialTraceCode  string     `json:"materialtracecode"`
	EquipmentId        string     `json:"equipmentid"`
	ProcessSchemeId    string     `json:"processschemeid"`
	InspectionPersonId string     `json:"inspectionpersonid"`
	InspectionTime     *time.Time `json:"inspectiontime"`
	RelationStage      string     `json:"relationstage"`
	RelationStatus     string     `json:"relationstatus"`
}

func (p *createRelationRequest) validate() error {
	if err := checkRequiredField("relationid", p.RelationId, 32); err != nil {
		return err
	}
	if err := checkRequiredField("productbatchno", p.ProductBatchNo, 20); err != nil {
		return err
	}
	if err := checkRequiredField("producttracecode", p.ProductTraceCode, 36); err != nil {
		return err
	}
	if err := checkRequiredField("materialtracecode", p.MaterialTraceCode, 36); err != nil {
		return err
	}
	if err := checkRequiredField("equipmentid", p.EquipmentId, 20); err != nil {
		return err
	}
	if err := checkRequiredField("processschemeid", p.ProcessSchemeId, 32); err != nil {
		return err
	}
	if err := checkRequiredField("inspectionpersonid", p.InspectionPersonId, 20); err != nil {
		return err
	}
	if err := checkRequiredField("relationstage", p.RelationStage, 30); err != nil {
		return err
	}
	if p.RelationStatus != "" {
		if err := schema.CheckValidRelationStatus(p.RelationStatus); err != nil {
			return err
		}
	}
	return nil
}

func (s *BatchRelationService) Create(w http.ResponseWriter, r *http.Request) {
	var params createRelationRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	inspectionTime := time.Now().UTC()
	if params.InspectionTime != nil {
		inspectionTime = *params.InspectionTime
	}

	status := params.RelationStatus
	if status == "" {
		status = schema.RelationStatusValid
	}

	relation := schema.BatchTraceRelation{
		RelationId:         params.RelationId,
		ProductBatchNo:     params.ProductBatchNo,
		ProductTraceCode:   params.ProductTraceCode,
		MaterialTraceCode:  params.MaterialTraceCode,
		EquipmentId:        params.EquipmentId,
		ProcessSchemeId:    params.ProcessSchemeId,
		InspectionPersonId: params.InspectionPersonId,
		InspectionTime:     inspectionTime,
		RelationStage:      params.RelationStage,
		RelationStatus:     status,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		// Relations may only reference raw material that has actually been
		// traced, checked here since sqlite does not enforce the fk.
		exists, err := schema.TraceCodeExists(params.MaterialTraceCode, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if !exists {
			return CodedError(fmt.Errorf("no raw material trace record with tracecode '%v'", params.MaterialTraceCode), http.StatusBadRequest)
		}

		var existing schema.BatchTraceRelation
		result := txn.Limit(1).Find(&existing, "relationid = ? OR producttracecode = ?", params.RelationId, params.ProductTraceCode)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate batch trace relation", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			if existing.RelationId == params.RelationId {
				return CodedError(fmt.Errorf("batch trace relation with relationid '%v' already exists", params.RelationId), http.StatusBadRequest)
			}
			return CodedError(fmt.Errorf("batch trace relation with producttracecode '%v' already exists", params.ProductTraceCode), http.StatusBadRequest)
		}

		if result := txn.Create(&relation); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return CodedError(fmt.Errorf("batch trace relation with this relationid or producttracecode already exists"), http.StatusBadRequest)
			}
			slog.Error("sql error creating batch trace relation", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("created batch trace relation", "relationid", relation.RelationId, "materialtracecode", relation.MaterialTraceCode)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, relation)
}

func (s *BatchRelationService) List(w http.ResponseWriter, r *http.Request) {
	var relations []schema.BatchTraceRelation

	result := s.db.Order("inspectiontime desc").Find(&relations)
	if result.Error != nil {
		slog.Error("sql error listing batch trace relations", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, relations)
}

func (s *BatchRelationService) Get(w http.ResponseWriter, r *http.Request) {
	relationId, err := utils.URLParam(r, "relation_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	relation, err := schema.GetRelation(relationId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrRelationNotFound) {
			writeError(w, CodedError(err, http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, relation)
}

func (s *BatchRelationService) Delete(w http.ResponseWriter, r *http.Request) {
	relationId, err := utils.URLParam(r, "relation_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	result := s.db.Delete(&schema.BatchTraceRelation{}, "relationid = ?", relationId)
	if result.Error != nil {
		slog.Error("sql error deleting batch trace relation", "relationid", relationId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, CodedError(schema.ErrRelationNotFound, http.StatusNotFound))
		return
	}

	slog.Info("deleted batch trace relation", "relationid", relationId)

	w.WriteHeader(http.StatusNoContent)
}
