package materialrequest

import (
	"context"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
	"github.com/jhoicas/kardex-api/internal/domain/repository"
)

// WorkflowTxRunner ejecuta una unidad de trabajo con solicitudes, saldos y kardex atados a la misma tx.
type WorkflowTxRunner interface {
	RunWorkflow(ctx context.Context, fn func(
		requestRepo repository.MaterialRequestRepository,
		balanceRepo repository.BalanceRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// DeliveryVoucherGenerator genera el vale de salida (PDF) de una solicitud entregada.
// La implementación vive en infrastructure/pdf (Maroto).
type DeliveryVoucherGenerator interface {
	GenerateDeliveryVoucher(ctx context.Context, req *entity.MaterialRequest) ([]byte, error)
}
