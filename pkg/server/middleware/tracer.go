package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kube-credential/credential-service/pkg/server/framework"
)

// Tracer starts a span per request and records the basics about it,
// including a peek at the body. Only wired in when tracing is enabled.
func Tracer(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	return func(c *gin.Context) {
		r := c.Request
		ctx, span := tracer.Start(r.Context(), c.FullPath())
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Set(framework.TraceIDKey.String(), traceID)

		body, err := framework.PeekRequestBody(r)
		if err != nil {
			// log the error and continue the trace with an empty body value
			logrus.WithError(err).Error("failed to read request body during tracing")
		}
		span.SetAttributes(
			attribute.String("method", r.Method),
			attribute.String("path", r.URL.Path),
			attribute.String("host", r.Host),
			attribute.String("user-agent", r.UserAgent()),
			attribute.String("proto", r.Proto),
			attribute.String("body", body),
		)

		c.Request = r.WithContext(ctx)
		c.Next()
	}
}
