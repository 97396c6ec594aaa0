package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/cardmate/internal/common"
	repo "github.com/joseph-ayodele/cardmate/internal/repository"
	"github.com/joseph-ayodele/cardmate/internal/services/auth"
	"github.com/joseph-ayodele/cardmate/internal/services/cards"
)

const (
	cardServiceName   = "cardmate.v1.CardService"
	scanCardMethod    = "/" + cardServiceName + "/ScanCard"
	listCardsMethod   = "/" + cardServiceName + "/ListCards"
	maxGRPCImageBytes = 10 << 20
)

// CardServiceServer is the gRPC surface of the card API. Requests and
// responses use protobuf well-known types so no generated code is needed.
type CardServiceServer interface {
	ScanCard(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListCards(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// CardServiceDesc describes cardmate.v1.CardService.
var CardServiceDesc = grpc.ServiceDesc{
	ServiceName: cardServiceName,
	HandlerType: (*CardServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ScanCard", Handler: scanCardHandler},
		{MethodName: "ListCards", Handler: listCardsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cardmate/v1/cards.proto",
}

func RegisterCardServiceServer(s grpc.ServiceRegistrar, srv CardServiceServer) {
	s.RegisterService(&CardServiceDesc, srv)
}

func scanCardHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CardServiceServer).ScanCard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: scanCardMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CardServiceServer).ScanCard(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listCardsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CardServiceServer).ListCards(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listCardsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CardServiceServer).ListCards(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// CardServiceClient calls cardmate.v1.CardService.
type CardServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCardServiceClient(cc grpc.ClientConnInterface) *CardServiceClient {
	return &CardServiceClient{cc: cc}
}

func (c *CardServiceClient) ScanCard(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, scanCardMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CardServiceClient) ListCards(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listCardsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CardService implements CardServiceServer over the card service.
type CardService struct {
	cards     *cards.Service
	uploadDir string
	logger    *slog.Logger
}

func NewCardService(svc *cards.Service, uploadDir string, logger *slog.Logger) *CardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CardService{cards: svc, uploadDir: uploadDir, logger: logger}
}

// ScanCard stores the contact found on the image bytes and returns the card.
func (s *CardService) ScanCard(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	userID, err := grpcUser(ctx)
	if err != nil {
		return nil, err
	}
	data := req.GetValue()
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("image bytes are required")
	}
	if len(data) > maxGRPCImageBytes {
		return nil, common.InvalidArgumentErrorf("image exceeds %d bytes", maxGRPCImageBytes)
	}

	f, err := os.CreateTemp(s.uploadDir, "card-*"+sniffExt(data))
	if err != nil {
		s.logger.Error("grpc temp file failed", "error", err)
		return nil, common.InternalError("failed to store image")
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, common.InternalError("failed to store image")
	}
	if err := f.Close(); err != nil {
		return nil, common.InternalError("failed to store image")
	}

	out, err := s.cards.Scan(ctx, userID, f.Name(), cards.ScanOptions{})
	if err != nil {
		s.logger.Warn("grpc scan failed", "user_id", userID, "error", err)
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"card": out.Card, "job_id": out.JobID})
}

func (s *CardService) ListCards(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	userID, err := grpcUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.cards.List(ctx, userID, repo.CardFilter{})
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return toStruct(map[string]any{"cards": list})
}

// toStruct converts v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return st, nil
}

// sniffExt picks a file extension the image loader understands.
func sniffExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/bmp":
		return ".bmp"
	case "image/webp":
		return ".webp"
	}
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		switch string(data[8:12]) {
		case "heic", "heix", "mif1", "msf1":
			return ".heic"
		}
	}
	return ".jpg"
}

func grpcUser(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(common.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, common.UnauthenticatedError("missing user")
	}
	return id, nil
}

// AuthInterceptor requires a bearer token in the "authorization" metadata
// for every card service call.
func AuthInterceptor(a *auth.Service, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, "/"+cardServiceName+"/") {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, common.UnauthenticatedError("missing bearer token")
		}
		user, err := a.Authenticate(ctx, values[0])
		if err != nil {
			logger.Warn("grpc auth rejected", "method", info.FullMethod, "error", err)
			return nil, common.UnauthenticatedError("invalid or expired token")
		}
		return handler(common.WithUserID(ctx, user.ID.String()), req)
	}
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("grpc.panic", "method", info.FullMethod, "panic", p)
				err = common.InternalError("internal error")
			}
			logger.Info("grpc.request", "method", info.FullMethod, "duration", time.Since(start), "error", err)
		}()
		return handler(ctx, req)
	}
}
