package envelope

// Wire layout (all integers little-endian):
//
//	header:
//	  magic        : 8 bytes = "MATHLDBT"
//	  version      : u16 = 1
//	  reserved     : u16 = 0
//	  row_count    : u32
//	  column_count : u32
//	per-column descriptor, repeated column_count times, descriptor then
//	payload, column after column, with no global offset table:
//	  name_len     : u32
//	  name_bytes   : name_len bytes of UTF-8
//	  logical_type : u8
//	  nullable     : u8 (0/1)
//	  encoding_id  : u8 (1=plain, 2=DictUtf8, 3=DeltaVarintI64)
//	  payload_len  : u32
//	  payload      : payload_len bytes, format depends on encoding_id
//
// Column payload formats:
//
//	Plain fixed:  validity bitmap, then n*width(type) little-endian values.
//	Plain varlen: validity bitmap, then n+1 u32 offsets, then offsets[n]
//	              bytes of data.
//	DictUtf8:     validity bitmap, u32 dict_len, dict_len+1 u32 offsets
//	              into a byte block, the byte block, then n unsigned
//	              varint indices (index 0 for absent cells).
//	DeltaVarintI64: single byte 0x01, then n zig-zag varints: v[0]
//	              absolute, v[i] = values[i] - values[i-1] for i>=1.
