package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"tracehub/trace/auth"
	"tracehub/trace/schema"
	"tracehub/utils"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type ItemService struct {
	db       *gorm.DB
	identity *auth.Identity
}

func (s *ItemService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.List)
	r.Get("/{item_id}", s.Get)

	r.Group(func(r chi.Router) {
		r.Use(s.identity.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Post("/", s.Create)
		r.Put("/{item_id}", s.Update)
		r.Delete("/{item_id}", s.Delete)
	})

	return r
}

type itemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (p *itemRequest) validate() error {
	if err := checkRequiredField("name", p.Name, 100); err != nil {
		return err
	}
	if p.Description != nil {
		if err := checkFieldLen("description", *p.Description, 255); err != nil {
			return err
		}
	}
	return nil
}

func (s *ItemService) Create(w http.ResponseWriter, r *http.Request) {
	var params itemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	item := schema.Item{Name: params.Name, Description: params.Description}

	err := s.db.Transaction(func(txn *gorm.DB) error {
		var existing schema.Item
		result := txn.Limit(1).Find(&existing, "name = ?", params.Name)
		if result.Error != nil {
			slog.Error("sql error checking for duplicate item name", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(fmt.Errorf("item with this name already exists"), http.StatusBadRequest)
		}

		if result := txn.Create(&item); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return CodedError(fmt.Errorf("item with this name already exists"), http.StatusBadRequest)
			}
			slog.Error("sql error creating item", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("created item", "item_id", item.Id, "name", item.Name)

	utils.WriteJsonResponseStatus(w, http.StatusCreated, item)
}

func (s *ItemService) List(w http.ResponseWriter, r *http.Request) {
	var items []schema.Item

	result := s.db.Order("id").Find(&items)
	if result.Error != nil {
		slog.Error("sql error listing items", "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, items)
}

func (s *ItemService) Get(w http.ResponseWriter, r *http.Request) {
	itemId, err := utils.URLParamInt(r, "item_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	item, err := schema.GetItem(itemId, s.db)
	if err != nil {
		if errors.Is(err, schema.ErrItemNotFound) {
			writeError(w, CodedError(err, http.StatusNotFound))
			return
		}
		writeError(w, CodedError(err, http.StatusInternalServerError))
		return
	}

	utils.WriteJsonResponse(w, item)
}

func (s *ItemService) Update(w http.ResponseWriter, r *http.Request) {
	itemId, err := utils.URLParamInt(r, "item_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	var params itemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := params.validate(); err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	var item schema.Item

	err = s.db.Transaction(func(txn *gorm.DB) error {
		item, err = schema.GetItem(itemId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrItemNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		var other schema.Item
		result := txn.Limit(1).Find(&other, "name = ? AND id <> ?", params.Name, itemId)
		if result.Error != nil {
			slog.Error("sql error checking for item name collision", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected != 0 {
			return CodedError(fmt.Errorf("another item with this name exists"), http.StatusBadRequest)
		}

		item.Name = params.Name
		item.Description = params.Description

		if result := txn.Save(&item); result.Error != nil {
			slog.Error("sql error updating item", "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		writeError(w, err)
		return
	}

	utils.WriteJsonResponse(w, item)
}

func (s *ItemService) Delete(w http.ResponseWriter, r *http.Request) {
	itemId, err := utils.URLParamInt(r, "item_id")
	if err != nil {
		writeError(w, CodedError(err, http.StatusBadRequest))
		return
	}

	result := s.db.Delete(&schema.Item{}, "id = ?", itemId)
	if result.Error != nil {
		slog.Error("sql error deleting item", "item_id", itemId, "error", result.Error)
		writeError(w, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError))
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, CodedError(schema.ErrItemNotFound, http.StatusNotFound))
		return
	}

	slog.Info("deleted item", "item_id", itemId)

	w.WriteHeader(http.StatusNoContent)
}
