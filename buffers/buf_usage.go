package buffers

type BufUsage int

// Full docs for buffer usage can be found here: https://registry.khronos.org/OpenGL-Refpages/gl4/html/glBufferData.xhtml
const (
	BufUsage_Unknown BufUsage = iota

	//Buffer is set only once and used many times
	BufUsage_Static_Draw
	//Buffer is changed a lot and used many times
	BufUsage_Dynamic_Draw
	//Buffer is set only once and used by the GPU at most a few times
	BufUsage_Stream_Draw
)

func (b BufUsage) String() string {

	switch b {
	case BufUsage_Static_Draw:
		return "StaticDraw"
	case BufUsage_Dynamic_Draw:
		return "DynamicDraw"
	case BufUsage_Stream_Draw:
		return "StreamDraw"
	default:
		return "Unknown"
	}
}
