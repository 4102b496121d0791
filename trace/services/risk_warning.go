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

type RiskWarningService struct {
	db       *gorm.DB
	identity *auth.Identity
}

func (s *RiskWarningService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{warning_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.identity.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Post("/", s.Create)
		r.Delete("/{warning_id}", s.Delete)
	})

	return r
}

type createWarningRequest struct {
	WarningId        string     `json:"warningid"`
	WarningObject    string     `json:"warningobject"`
	ObjectId         string     `json:"objectid"`
	RiskType         string     `json:"risktype"`
	RiskLevel        *int       `json:"risklevel"`
	TriggerCondition string     `json:"triggercondition"`
	TriggerTime      *time.Time `json:"triggertime"`
	HandlerId        string     `json:"handlerid"`
	HandleStatus     string     `json:"handlestatus"`
	HandleResult     *string    `json:"handleresult"`
}

func (p *createWarningRequest) validate() error {
	if err := checkRequiredField("warningid", p.WarningId, 32); err != nil {
		return err
	}
	if err := schema.CheckValidWarningObject(p.WarningObject); err != nil {
		return err
	}
	if err := checkRequiredField("objectid", p.ObjectId, 32); err != nil {
		return err
	}
	if err := checkRequiredField("risktype", p.RiskType, 50); err != nil {
		return err
	}
	if p.RiskLevel != nil {
		if err := schema.CheckValidRiskLevel(*p.RiskLevel); err != nil {
			return err
		}
	}
	if p.TriggerCondition == "" {
		return fmt.Errorf("field 'triggercondition' is required")
	}
	if err := checkRequiredField("handlerid", p.HandlerId, 20); err != nil {
		return err
	}
	if p.HandleStatus != "" {
		if err := schema.CheckValidHandleStatus(p.HandleStatus); err != nil {
			return err
		}
	}
	return nil
}

func (s *RiskWarningService) Create(w http.ResponseWriter, r *http.Request) {
	var params createWarningRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	triggerTime := time.Now().UTC()
	if params.TriggerTime != nil {
		triggerTime = *params.TriggerTime
	}

	riskLevel := schema.DefaultRiskLevel
	if params.RiskLevel != nil {
		riskLevel = *params.RiskLevel
	}

	status := params.HandleStatus
	if status == "" {
		status = schema.HandleStatusPending
	}

	warning := schema.QualityRiskWarning{
		WarningId:        params.WarningId,
		WarningObject:    params.WarningObject,
		ObjectId:         params.ObjectId,
		RiskType:         params.RiskType,
		RiskLevel:        riskLevel,
		TriggerCondition: params.TriggerCondition,
		TriggerTime:      triggerTime,
		HandlerId:        params.HandlerId,
		HandleStatus:     status,
		HandleResult:     params.HandleResult,
	}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.QualityRiskWarning
		result := txn.Limit(1).Find(&existing, "warningid = ?", params.WarningId)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate quality risk warning", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(fmt.Errorf("quality risk warning with warningid '%v' already exists", params.WarningId), http.StatusBadRequest)
		}

		if result := txn.Create(&warning); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return CodedError(fmt.Errorf("quality risk warning with warningid '%v' already exists", params.WarningId), http.StatusBadRequest)
			}
			slog.Error("sql error creating quality risk warning", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("created quality risk warning", "warningid", warning.WarningId, "risklevel", warning.RiskLevel)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, warning)
}

func (s *RiskWarningService) List(w http.ResponseWriter, r *http.Request) {
	var warnings []schema.QualityRiskWarning

	result := s.db.Order("triggertime desc").Find(&warnings)
	if result.Error != nil {
		slog.Error("sql error listing quality risk warnings", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, warnings)
}

func (s *RiskWarningService) Get(w http.ResponseWriter, r *http.Request) {
	warningId, err := utils.URLParam(r, "warning_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	warning, err := schema.GetWarning(warningId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrWarningNotFound) {
			writeError(w, CodedError(err, http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, warning)
}

func (s *RiskWarningService) Delete(w http.ResponseWriter, r *http.Request) {
	warningId, err := utils.URLParam(r, "warning_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	result := s.db.Delete(&schema.QualityRiskWarning{}, "warningid = ?", warningId)
	if result.Error != nil {
		slog.Error("sql error deleting quality risk warning", "warningid", warningId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, CodedError(schema.ErrWarningNotFound, http.StatusNotFound))
		return
	}

	slog.Info("deleted quality risk warning", "warningid", warningId)

	w.WriteHeader(http.StatusNoContent)
}
