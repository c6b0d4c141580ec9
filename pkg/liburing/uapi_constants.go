//go:build linux

package liburing

// Raw IORING_SETUP_* names as they appear in the kernel's io_uring UAPI
// header. The friendly Setup* constants in flags.go are declared with the
// identical bit ordering, so these are plain aliases kept in sync with them.
const (
	IORING_SETUP_IOPOLL           = SetupIOPoll
	IORING_SETUP_SQPOLL           = SetupSQPoll
	IORING_SETUP_SQ_AFF           = SetupSQAff
	IORING_SETUP_CQSIZE           = SetupCQSize
	IORING_SETUP_CLAMP            = SetupClamp
	IORING_SETUP_ATTACH_WQ        = SetupAttachWQ
	IORING_SETUP_R_DISABLED       = SetupRDisabled
	IORING_SETUP_SUBMIT_ALL       = SetupSubmitAll
	IORING_SETUP_COOP_TASKRUN     = SetupCoopTaskRun
	IORING_SETUP_TASKRUN_FLAG     = SetupTaskRunFlag
	IORING_SETUP_SQE128           = SetupSQE128
	IORING_SETUP_CQE32            = SetupCQE32
	IORING_SETUP_SINGLE_ISSUER    = SetupSingleIssuer
	IORING_SETUP_DEFER_TASKRUN    = SetupDeferTaskRun
	IORING_SETUP_NO_MMAP          = SetupNoMmap
	IORING_SETUP_REGISTERED_FD_ONLY = SetupRegisteredFdOnly
	IORING_SETUP_NO_SQARRAY       = SetupNoSQArray
	IORING_SETUP_HYBRID_IOPOLL    = SetupHybridIOPoll
)

// IORING_FEAT_* feature bits returned by the kernel in Params.features.
const (
	FeatSingleMmap uint32 = 1 << iota
	FeatNoDrop
	FeatSubmitStable
	FeatRWCurPos
	FeatCurPersonality
	FeatFastPoll
	FeatPoll32Bits
	FeatSQPollNonfixed
	FeatExtArg
	FeatNativeWorkers
	FeatRSRCTags
	FeatCQESkip
	FeatLinkedFile
	FeatRegRegRing
	FeatRecvSendBundle
	FeatMinTimeout
)

const (
	IORING_FEAT_SQPOLL_NONFIXED = FeatSQPollNonfixed
	IORING_FEAT_EXT_ARG         = FeatExtArg
	IORING_FEAT_NATIVE_WORKERS  = FeatNativeWorkers
	IORING_FEAT_REG_REG_RING    = FeatRegRegRing
)

// Kernel-enforced bounds on ring sizing.
const (
	IORING_MAX_ENTRIES    uint32 = 32768
	IORING_MAX_CQ_ENTRIES        = 2 * IORING_MAX_ENTRIES
)

// fsync / accept / recvsend / notif / uring_cmd opcode flags.
const (
	IORING_FSYNC_DATASYNC uint32 = 1 << 0

	IORING_ACCEPT_MULTISHOT uint32 = 1 << 0

	IORING_RECVSEND_POLL_FIRST uint32 = 1 << 0

	IORING_NOTIF_USAGE_ZC_COPIED uint32 = 1 << 31

	IORING_URING_CMD_FIXED uint32 = 1 << 0
	IORING_URING_CMD_MASK  uint32 = IORING_URING_CMD_FIXED
)

// Direct-descriptor allocation marker, used by PrepareSocketDirectAlloc to
// ask the kernel to pick a fixed-file slot automatically.
const IORING_FILE_INDEX_ALLOC uint32 = 1<<32 - 1

// _updateTimeoutUserdata is the sentinel user-data value the kernel (and
// liburing) use for the internal timeout SQE submitted by submitTimeout on
// kernels without IORING_FEAT_EXT_ARG. CQEs carrying it are consumed by
// getCQE/peekCQE and never handed to callers.
const _updateTimeoutUserdata uint64 = ^uint64(0)

// Resource registration flags, used by RegisterFiles/RegisterBuffers variants.
const (
	IORING_RSRC_REGISTER_SPARSE uint32 = 1 << 0
	IORING_REGISTER_FILES_SKIP  int32  = -2
)
