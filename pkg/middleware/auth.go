package middleware

import (
	"strings"

	"licensing-controlplane/pkg/errutil"
	"licensing-controlplane/services/license"

	"github.com/gin-gonic/gin"
)

const licenseContextKey = "license.validated"

// LicenseAuth validates the caller's license token on every request and
// stores the validated license in the gin context. Requests without a token,
// or with one that fails any validation step, are aborted with the typed
// error envelope.
func LicenseAuth(v *license.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			abort(c, errutil.Unauthorized("missing license token",
				errutil.WithReason(license.ReasonInvalidSignature),
			))
			return
		}

		validated, err := v.Validate(c.Request.Context(), raw)
		if err != nil {
			abort(c, err)
			return
		}

		c.Set(licenseContextKey, validated)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return token
		}
	}
	return c.GetHeader("X-License-Token")
}

func abort(c *gin.Context, err error) {
	be, ok := errutil.AsBase(err)
	if !ok {
		be, _ = errutil.AsBase(errutil.Internal("internal server error"))
	}
	c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.JSON())
}

// ValidatedLicense returns the license stored by LicenseAuth. Handlers behind
// the middleware can rely on it being present.
func ValidatedLicense(c *gin.Context) *license.Validated {
	val, _ := c.Get(licenseContextKey)
	validated, _ := val.(*license.Validated)
	return validated
}
