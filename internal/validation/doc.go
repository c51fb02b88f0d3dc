// Curatarr - Media Recommendation Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatarr

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built once and reused, so struct metadata is
// parsed only on first use. Field names in errors come from json tags, which
// makes messages match the request bodies clients actually send:
//
//	type statusRequest struct {
//	    Status models.Status `json:"status" validate:"required,oneof=pending approved rejected"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError() // Code "VALIDATION_FAILED"
//	    ...
//	}
//
// Request types across the module carry their own validate tags:
// models.Filters for run filters and recommend.CommitOptions for commits.
package validation
