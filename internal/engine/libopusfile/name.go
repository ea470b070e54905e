package libopusfile

// Name identifies the engine in logs and descriptions.
const Name = "libopusfile"
