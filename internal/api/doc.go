// Package api handles incoming HTTP requests, routing, request
// validation, and response formatting for the vocabulary vault. It is a
// thin adapter over the scheduling coordinator: handlers translate HTTP
// concerns into coordinator operations and map domain errors back to
// status codes, and never hold state of their own.
package api
