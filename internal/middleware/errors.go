package middleware

import (
	"net/http"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
)

// ProblemFromStatus builds the problem document for a request the chain
// rejects before a handler runs
func ProblemFromStatus(r *http.Request, status int, detail string) *apierrors.ProblemDetails {
	return apierrors.NewProblemDetails(
		status,
		apierrors.TypeForStatus(status),
		http.StatusText(status),
		detail,
		r.URL.Path,
	).WithExtension("trace_id", GetRequestID(r.Context()))
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	apierrors.WriteProblem(w, ProblemFromStatus(r, status, detail))
}
