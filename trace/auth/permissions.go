package auth

import (
	"fmt"
	"net/http"
	"tracehub/utils"
)

// AdminOnly gates mutating endpoints. The request must already have passed
// through AuthMiddleware so the user is present in the context.
func AdminOnly() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				utils.WriteErrorDetail(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !user.Role.CanMutate() {
				utils.WriteErrorDetail(w, fmt.Sprintf("user %v is not an admin", user.Username), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}
