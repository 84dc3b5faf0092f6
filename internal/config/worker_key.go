package config

type WorkerKeyStruct struct {
	// ExpirySweepLock is held by the replica running the current expiry sweep.
	ExpirySweepLock string
}

var WorkerKey = &WorkerKeyStruct{
	ExpirySweepLock: "worker:expiry_sweep:lock",
}
