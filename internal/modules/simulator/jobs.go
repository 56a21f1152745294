package simulator

import "context"

// SendJob runs SendOrdersToExchange on a schedule
type SendJob struct {
	sim *Simulator
}

// NewSendJob creates the Initialized -> Processing job
func NewSendJob(sim *Simulator) *SendJob {
	return &SendJob{sim: sim}
}

// Name returns the job name for scheduling and logging.
func (j *SendJob) Name() string {
	return "simulator_send"
}

// Run executes one send cycle
func (j *SendJob) Run() error {
	_, err := j.sim.SendOrdersToExchange(context.Background())
	return err
}

// ProcessJob runs ProcessExchangeResponses on a schedule
type ProcessJob struct {
	sim *Simulator
}

// NewProcessJob creates the Processing -> Filled/Rejected job
func NewProcessJob(sim *Simulator) *ProcessJob {
	return &ProcessJob{sim: sim}
}

// Name returns the job name for scheduling and logging.
func (j *ProcessJob) Name() string {
	return "simulator_process"
}

// Run executes one resolve cycle
func (j *ProcessJob) Run() error {
	_, err := j.sim.ProcessExchangeResponses(context.Background())
	return err
}
