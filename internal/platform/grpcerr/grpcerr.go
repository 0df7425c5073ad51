// Package grpcerr builds gRPC status errors carrying an ErrorInfo reason and
// maps them back onto the JSON error envelope of the HTTP API.
package grpcerr

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func InvalidArgument(domain, reason, msg string, fieldViolations map[string]string) error {
	st := status.New(codes.InvalidArgument, msg)
	info := &errdetails.ErrorInfo{Reason: reason, Domain: domain}

	bad := &errdetails.BadRequest{}
	for field, desc := range fieldViolations {
		bad.FieldViolations = append(bad.FieldViolations, &errdetails.BadRequest_FieldViolation{Field: field, Description: desc})
	}

	st2, err := st.WithDetails(info, bad)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

func NotFound(domain, reason, msg string) error {
	return withReason(codes.NotFound, domain, reason, msg)
}

func Unavailable(domain, reason, msg string) error {
	return withReason(codes.Unavailable, domain, reason, msg)
}

func Internal(domain, reason, msg string) error {
	return withReason(codes.Internal, domain, reason, msg)
}

func withReason(code codes.Code, domain, reason, msg string) error {
	st := status.New(code, msg)
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: domain})
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

// Reason returns the ErrorInfo reason attached to err, if any.
func Reason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}

// IsNotFound reports whether err is a NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
