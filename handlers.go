// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sbuxapp/storefront/model"
	"github.com/sbuxapp/storefront/repository"
	"github.com/sbuxapp/storefront/service"
	"github.com/sbuxapp/storefront/validator"
)

const maxBodyBytes = 1 << 16

type storefrontServer struct {
	sf *service.Storefront
}

type cartUpdateView struct {
	ItemID   int                 `json:"item_id"`
	Quantity int                 `json:"quantity"`
	Cart     service.SummaryView `json:"cart"`
}

type addToCartRequest struct {
	ItemID int `json:"item_id"`
}

func newRouter(fe *storefrontServer) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/home", fe.homeHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/categories", fe.categoriesHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/menu", fe.menuHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/search", fe.searchHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/items/{id}", fe.itemHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/cart", fe.viewCartHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/cart", fe.emptyCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/cart/badges", fe.badgesHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/cart/items", fe.addToCartHandler).Methods(http.MethodPost)
	api.HandleFunc("/cart/items/{id}", fe.removeFromCartHandler).Methods(http.MethodDelete)
	api.HandleFunc("/profile", fe.profileHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/_healthz", func(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, "ok") })
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderHTTPError(requestLogger(r), r, w, errors.Errorf("no route for %s %s", r.Method, r.URL.Path), http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		renderHTTPError(requestLogger(r), r, w, errors.Errorf("method %s not allowed", r.Method), http.StatusMethodNotAllowed)
	})
	return r
}

func (fe *storefrontServer) homeHandler(w http.ResponseWriter, r *http.Request) {
	requestLogger(r).Debug("home")
	writeJSON(w, http.StatusOK, fe.sf.Home())
}

func (fe *storefrontServer) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fe.sf.Catalog().Categories())
}

func (fe *storefrontServer) menuHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	payload := validator.CategoryPayload{Category: r.URL.Query().Get("category")}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("category", payload.Category).Debug("serving menu")

	view, err := fe.sf.Menu(r.Context(), sessionID(r), model.Category(payload.Category))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not build menu"), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (fe *storefrontServer) searchHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	q := r.URL.Query()
	payload := validator.SearchPayload{Query: q.Get("q"), Scope: q.Get("scope")}
	if payload.Scope == "" {
		payload.Scope = string(service.ScopeMenu)
	}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}

	view, err := fe.sf.Search(r.Context(), sessionID(r), service.Scope(payload.Scope), payload.Query)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not search"), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (fe *storefrontServer) itemHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	id, err := itemIDVar(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	view, err := fe.sf.Item(id)
	if err != nil {
		renderHTTPError(log, r, w, err, errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (fe *storefrontServer) viewCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	sum, err := fe.sf.Summary(r.Context(), sessionID(r))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (fe *storefrontServer) badgesHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	badges, err := fe.sf.Badges(r.Context(), sessionID(r))
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "could not retrieve cart"), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (fe *storefrontServer) addToCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	var req addToCartRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "malformed request body"), http.StatusBadRequest)
		return
	}
	payload := validator.AddToCartPayload{ItemID: req.ItemID}
	if err := payload.Validate(); err != nil {
		renderHTTPError(log, r, w, validator.ValidationErrorResponse(err), http.StatusUnprocessableEntity)
		return
	}
	log.WithField("item", payload.ItemID).Debug("adding to cart")

	qty, err := fe.sf.AddOne(r.Context(), sessionID(r), payload.ItemID)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to add to cart"), errorStatus(err))
		return
	}
	fe.writeCartUpdate(w, r, payload.ItemID, qty)
}

func (fe *storefrontServer) removeFromCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	id, err := itemIDVar(r)
	if err != nil {
		renderHTTPError(log, r, w, err, http.StatusBadRequest)
		return
	}
	log.WithField("item", id).Debug("removing from cart")

	qty, err := fe.sf.RemoveOne(r.Context(), sessionID(r), id)
	if err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to remove from cart"), errorStatus(err))
		return
	}
	fe.writeCartUpdate(w, r, id, qty)
}

func (fe *storefrontServer) emptyCartHandler(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	log.Debug("emptying cart")

	if err := fe.sf.EmptyCart(r.Context(), sessionID(r)); err != nil {
		renderHTTPError(log, r, w, errors.Wrap(err, "failed to empty cart"), errorStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (fe *storefrontServer) profileHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fe.sf.Profile())
}

func (fe *storefrontServer) writeCartUpdate(w http.ResponseWriter, r *http.Request, itemID, qty int) {
	sum, err := fe.sf.Summary(r.Context(), sessionID(r))
	if err != nil {
		renderHTTPError(requestLogger(r), r, w, errors.Wrap(err, "could not retrieve cart"), errorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, cartUpdateView{ItemID: itemID, Quantity: qty, Cart: sum})
}

func itemIDVar(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

// errorStatus maps service and storage errors onto HTTP codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownScope), errors.Is(err, repository.ErrNoSession):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("error", err).Warn("failed to write response")
	}
}

func renderHTTPError(log logrus.FieldLogger, r *http.Request, w http.ResponseWriter, err error, code int) {
	if code >= http.StatusInternalServerError {
		log.WithField("error", err).Error("request error")
	} else {
		log.WithField("error", err).Warn("request rejected")
	}

	requestID, _ := r.Context().Value(ctxKeyRequestID{}).(string)
	writeJSON(w, code, map[string]interface{}{
		"error":       err.Error(),
		"status_code": code,
		"status":      http.StatusText(code),
		"request_id":  requestID,
	})
}
