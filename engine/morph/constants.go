package morph

// MaxTargetCount is the hard ceiling on how many morph targets can be blended onto a
// base mesh at the same time. It is the single definition shared by host-side buffer
// allocation (PackDeltas, MarshalWeights, GPUBlendParams) and the blend kernel, which
// receives it through the kernel pre-processor as MAX_TARGET_COUNT.
//
// Every buffer, weight array and loop over target slots is bounded by this value.
const MaxTargetCount = 3

// MaxTextureWidth is the widest packed delta row the legacy texture layout allowed.
// It bounds the total packed geometry through MaxPackedDeltas.
const MaxTextureWidth = 8192

// MaxPackedDeltas is the maximum number of packed TargetDelta entries (vertex count times
// MaxTargetCount) a single morpher may hold. Each entry carries both a position and a normal
// offset, which is why the element budget of a MaxTextureWidth squared texture is halved.
const MaxPackedDeltas = MaxTextureWidth * MaxTextureWidth / 2
