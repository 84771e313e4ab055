package app

import (
	"fmt"
	"strings"

	"grab-go/internal/grab"
)

// Action is what the host should do at startup.
type Action string

const (
	ActionProceed Action = "proceed"
	ActionWarn    Action = "warn"
	ActionBlock   Action = "block"
)

// Exit codes used by `grab check` so shell hosts can branch on the action.
const (
	ExitProceed = 0
	ExitWarn    = 10
	ExitBlock   = 20
)

// Decision maps a check result onto a user-facing startup outcome.
type Decision struct {
	Action          Action
	Status          grab.Status
	Message         string
	DownloadURL     string
	UpdateAvailable bool
	// Unverified is set when the policy could not be confirmed online.
	Unverified      bool
}

const (
	defaultKillSwitchMessage  = "grab is temporarily unavailable."
	defaultUnsupportedMessage = "This version of grab is no longer supported. Please update to continue."
	defaultForceUpdateMessage = "A required update is available. Please update to continue."
	defaultDeprecatedMessage  = "This version of grab will soon stop working. Please update."
)

// Decide turns res into the action and message the host should show.
func Decide(res *grab.VersionCheckResult) Decision {
	p := res.Config
	d := Decision{
		Status:          res.Status,
		DownloadURL:     p.DownloadURL,
		UpdateAvailable: grab.IsVersionNewer(p.LatestVersion, res.UserVersion),
		Unverified:      res.IsOffline,
	}

	switch res.Status {
	case grab.StatusBlocked:
		d.Action = ActionBlock
		if p.IsKillSwitchActive && !res.IsOffline {
			d.Message = orDefault(p.KillSwitchMessage, defaultKillSwitchMessage)
			d.DownloadURL = ""
		} else {
			d.Message = orDefault(p.UpdateMessage, defaultUnsupportedMessage)
		}
	case grab.StatusForceUpdate:
		d.Action = ActionBlock
		d.Message = orDefault(p.UpdateMessage, defaultForceUpdateMessage)
	case grab.StatusDeprecated:
		d.Action = ActionWarn
		d.Message = orDefault(p.UpdateMessage, defaultDeprecatedMessage)
	default:
		d.Action = ActionProceed
		if d.UpdateAvailable {
			d.Message = fmt.Sprintf("Version %s is available.", p.LatestVersion)
		}
	}

	if res.CacheExpired {
		d.Message = strings.TrimSpace(d.Message + " Update status could not be verified recently.")
	}
	return d
}

// ExitCode returns the process exit code for the decision.
func (d Decision) ExitCode() int {
	switch d.Action {
	case ActionBlock:
		return ExitBlock
	case ActionWarn:
		return ExitWarn
	default:
		return ExitProceed
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
