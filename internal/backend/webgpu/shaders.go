package webgpu

// WGSL kernels for the operations this backend offloads. Bindings follow a
// fixed convention: input buffers first, then the output buffer, then the
// uniform parameter block.

// workgroupSize is the thread count per workgroup for 1D dispatches.
// 2D kernels tile in 16x16 workgroups.
const workgroupSize = 256

// matmulWGSL computes out = lhs @ rhs for lhs [M, K] and rhs [K, N].
// One thread per output element.
const matmulWGSL = `
struct Dims {
    m: u32,
    k: u32,
    n: u32,
}

@group(0) @binding(0) var<storage, read> lhs: array<f32>;
@group(0) @binding(1) var<storage, read> rhs: array<f32>;
@group(0) @binding(2) var<storage, read_write> out: array<f32>;
@group(0) @binding(3) var<uniform> dims: Dims;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let col = gid.x;
    let row = gid.y;
    if (row >= dims.m || col >= dims.n) {
        return;
    }

    var acc = 0.0;
    for (var i = 0u; i < dims.k; i++) {
        acc += lhs[row * dims.k + i] * rhs[i * dims.n + col];
    }
    out[row * dims.n + col] = acc;
}
`

// transposeWGSL writes src [rows, cols] to out [cols, rows].
const transposeWGSL = `
struct Dims {
    rows: u32,
    cols: u32,
}

@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> out: array<f32>;
@group(0) @binding(2) var<uniform> dims: Dims;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let col = gid.x;
    let row = gid.y;
    if (row >= dims.rows || col >= dims.cols) {
        return;
    }
    out[col * dims.rows + row] = src[row * dims.cols + col];
}
`

// ewiseWGSL applies an element-wise binary operation selected by meta.op:
// 0 adds, 1 multiplies. One kernel keeps the pipeline cache small.
const ewiseWGSL = `
struct Meta {
    size: u32,
    op: u32,
}

@group(0) @binding(0) var<storage, read> lhs: array<f32>;
@group(0) @binding(1) var<storage, read> rhs: array<f32>;
@group(0) @binding(2) var<storage, read_write> out: array<f32>;
@group(0) @binding(3) var<uniform> meta: Meta;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= meta.size) {
        return;
    }
    if (meta.op == 0u) {
        out[i] = lhs[i] + rhs[i];
    } else {
        out[i] = lhs[i] * rhs[i];
    }
}
`

// reluWGSL clamps negatives to zero.
const reluWGSL = `
struct Meta {
    size: u32,
}

@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> out: array<f32>;
@group(0) @binding(2) var<uniform> meta: Meta;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if (i >= meta.size) {
        return;
    }
    out[i] = max(src[i], 0.0);
}
`

// softmaxWGSL normalizes each row of src [rows, width] into a probability
// distribution. One thread reduces one row; the max shift keeps exp stable
// for large logits.
const softmaxWGSL = `
struct Dims {
    rows: u32,
    width: u32,
}

@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> out: array<f32>;
@group(0) @binding(2) var<uniform> dims: Dims;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    let row = gid.x;
    if (row >= dims.rows) {
        return;
    }
    let base = row * dims.width;

    var peak = src[base];
    for (var i = 1u; i < dims.width; i++) {
        peak = max(peak, src[base + i]);
    }

    var total = 0.0;
    for (var i = 0u; i < dims.width; i++) {
        let e = exp(src[base + i] - peak);
        out[base + i] = e;
        total += e;
    }

    for (var i = 0u; i < dims.width; i++) {
        out[base + i] /= total;
    }
}
`

// shaderSources maps kernel names to their WGSL code.
var shaderSources = map[string]string{
	"matmul":    matmulWGSL,
	"transpose": transposeWGSL,
	"ewise":     ewiseWGSL,
	"relu":      reluWGSL,
	"softmax":   softmaxWGSL,
}
