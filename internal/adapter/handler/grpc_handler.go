package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// InventoryServiceName is the health-check name of the inventory API.
const InventoryServiceName = "locofly.inventory.v1.InventoryAPI"

type GRPCHandler struct {
	health *health.Server
}

// NewGRPCHandler starts with every service NOT_SERVING until SetServing is called.
func NewGRPCHandler() *GRPCHandler {
	h := &GRPCHandler{health: health.NewServer()}
	h.SetServing(false)
	return h
}

func (h *GRPCHandler) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", st)
	h.health.SetServingStatus(InventoryServiceName, st)
}

// Shutdown flips everything to NOT_SERVING and ignores later updates.
func (h *GRPCHandler) Shutdown() {
	h.health.Shutdown()
}

// NewGRPCServer registers the health and reflection services.
func NewGRPCServer(h *GRPCHandler, log *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(log)))
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)
	return srv
}

func unaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("gRPC Request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
		)
		return resp, err
	}
}
