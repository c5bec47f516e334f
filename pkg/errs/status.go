package errs

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ToStatus maps err onto a gRPC status: NotFound, precondition
// mismatch, and permission errors each get their own code; DbError
// maps to Internal, IoError to Unavailable, and ObjectStoreError to
// Unknown; anything else the façade didn't expect to see surfaces as
// Internal so a bug doesn't get silently reported as success.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}

	switch KindOf(err) {
	case NotFound:
		return status.New(codes.NotFound, err.Error())
	case PreconditionFailed:
		return status.New(codes.FailedPrecondition, err.Error())
	case PermissionDenied:
		return status.New(codes.PermissionDenied, err.Error())
	case DbError:
		return status.New(codes.Internal, err.Error())
	case IoError:
		return status.New(codes.Unavailable, err.Error())
	case ObjectStoreError:
		return status.New(codes.Unknown, err.Error())
	default:
		return status.New(codes.Internal, err.Error())
	}
}
