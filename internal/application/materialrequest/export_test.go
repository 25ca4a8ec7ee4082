package materialrequest

import "time"

// SetClock fija el reloj usado para folios y fechas.
func (uc *WorkflowUseCase) SetClock(now func() time.Time) { uc.now = now }
