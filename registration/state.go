package registration

// State is the lifecycle state of a landmark registration.
type State int

// The registration states. Landmarks are added strictly alternating, image first.
const (
	Idle State = iota
	ImageLandmarkAdded
	// TrackerLandmarkAdded is reached after a tracker landmark while fewer than three pairs exist.
	TrackerLandmarkAdded
	// ReadyToCompute is reached after a tracker landmark once three or more pairs exist.
	ReadyToCompute
	AttemptingToComputeTransform
	TransformComputed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ImageLandmarkAdded:
		return "ImageLandmarkAdded"
	case TrackerLandmarkAdded:
		return "TrackerLandmarkAdded"
	case ReadyToCompute:
		return "ReadyToCompute"
	case AttemptingToComputeTransform:
		return "AttemptingToComputeTransform"
	case TransformComputed:
		return "TransformComputed"
	default:
		return "Unknown"
	}
}

type input int

const (
	inputImageLandmark input = iota
	inputTrackerLandmark
	inputComputeTransform
	inputComputationSucceeded
	inputComputationFailed
	inputGetTransform
	inputGetRMSError
	inputReset
)

func (in input) String() string {
	switch in {
	case inputImageLandmark:
		return "AddImageLandmark"
	case inputTrackerLandmark:
		return "AddTrackerLandmark"
	case inputComputeTransform:
		return "ComputeTransform"
	case inputComputationSucceeded:
		return "ComputationSucceeded"
	case inputComputationFailed:
		return "ComputationFailed"
	case inputGetTransform:
		return "GetTransform"
	case inputGetRMSError:
		return "GetRMSError"
	case inputReset:
		return "Reset"
	default:
		return "Unknown"
	}
}

type action int

const (
	actionReject action = iota
	actionAddImageLandmark
	actionAddTrackerLandmark
	actionCompute
	actionAcceptResult
	actionDiscardResult
	actionReport
	actionReset
)

// minimumPairs is the number of landmark pairs needed before a transform can be computed.
const minimumPairs = 3

// transition returns the next state and the action to run for in, given the number of complete
// landmark pairs currently held. A rejected input keeps the current state.
func transition(s State, in input, pairs int) (State, action) {
	if in == inputReset {
		return Idle, actionReset
	}
	switch s {
	case Idle, TrackerLandmarkAdded:
		if in == inputImageLandmark {
			return ImageLandmarkAdded, actionAddImageLandmark
		}
	case ReadyToCompute:
		switch in {
		case inputImageLandmark:
			return ImageLandmarkAdded, actionAddImageLandmark
		case inputComputeTransform:
			return AttemptingToComputeTransform, actionCompute
		default:
		}
	case ImageLandmarkAdded:
		if in == inputTrackerLandmark {
			if pairs+1 >= minimumPairs {
				return ReadyToCompute, actionAddTrackerLandmark
			}
			return TrackerLandmarkAdded, actionAddTrackerLandmark
		}
	case AttemptingToComputeTransform:
		switch in {
		case inputComputationSucceeded:
			return TransformComputed, actionAcceptResult
		case inputComputationFailed:
			return ReadyToCompute, actionDiscardResult
		default:
		}
	case TransformComputed:
		if in == inputGetTransform || in == inputGetRMSError {
			return TransformComputed, actionReport
		}
	}
	return s, actionReject
}

// rejectionReason explains why in is not accepted in s.
func rejectionReason(s State, in input, pairs int) string {
	switch {
	case s == TransformComputed && (in == inputImageLandmark || in == inputTrackerLandmark):
		return "transform already computed; reset before adding landmarks"
	case in == inputImageLandmark:
		return "expected a tracker landmark"
	case in == inputTrackerLandmark:
		return "expected an image landmark"
	case in == inputComputeTransform && s == ImageLandmarkAdded:
		return "last image landmark has no tracker landmark"
	case in == inputComputeTransform && s == TransformComputed:
		return "transform already computed"
	case in == inputComputeTransform && pairs < minimumPairs:
		return "fewer than 3 landmark pairs"
	case in == inputGetTransform || in == inputGetRMSError:
		return "no transform computed"
	default:
		return ""
	}
}
