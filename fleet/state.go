package fleet

type State string

const (
	StateInit        State = "init"
	StateProvisioned State = "provisioned"
	StateWaiting     State = "waiting"
	StateCounting    State = "counting"
	StateInterrupted State = "interrupted"
	StateTerminated  State = "terminated"
)

func (s State) String() string {
	return string(s)
}
