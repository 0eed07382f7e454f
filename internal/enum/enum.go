package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	TableStatusAvailable = "Available"
	TableStatusOccupied  = "Occupied"
	TableStatusReserved  = "Reserved"
	TableStatusDirty     = "Dirty"
)

const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

const (
	TicketStatusDraft     = "DRAFT"
	TicketStatusSubmitted = "SUBMITTED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentModeCash = "Cash"
	PaymentModeCard = "Card"
	PaymentModeQRIS = "QRIS"
)

const DefaultCustomer = "Walk-in"

// IsTableStatus reports whether s is one of the four table statuses.
func IsTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusReserved, TableStatusDirty:
		return true
	}
	return false
}
