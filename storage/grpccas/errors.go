package grpccas

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/envelope/storage"
)

// mapRPC turns a status error back into the storage sentinel the server started from.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.DataLoss:
		return storage.ErrCIDMismatch
	case codes.AlreadyExists:
		return storage.ErrImmutable
	case codes.Unimplemented:
		return storage.ErrNoList
	case codes.InvalidArgument:
		if st.Message() == storage.ErrNotEnvelope.Error() {
			return storage.ErrNotEnvelope
		}
		return storage.ErrInvalidCID
	default:
		return err
	}
}
