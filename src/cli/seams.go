package cli

import "relaybot/src/safety"

// confirmFunc is swappable in tests to avoid prompting on stdin.
var confirmFunc = safety.Confirm
