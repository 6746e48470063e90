package testsupport

// SampleTimeline is a small xmeml sequence at 25 fps:
//
//	video track 1: clip "intro.mp4" frames [0,250), clip "city.jpeg" frames [250,500)
//	video track 2: text "Welcome" frames [250,375)
//	audio track 1: clip "theme.mp3" frames [0,750)
const SampleTimeline = `<?xml version="1.0" encoding="UTF-8"?>
<xmeml version="4">
  <sequence id="sequence-1">
    <name>sandbox</name>
    <duration>750</duration>
    <rate>
      <timebase>25</timebase>
      <ntsc>FALSE</ntsc>
    </rate>
    <media>
      <video>
        <track>
          <clipitem id="clipitem-1">
            <name>intro.mp4</name>
            <start>0</start>
            <end>250</end>
            <file id="file-1">
              <name>intro.mp4</name>
              <pathurl>file:///assets/videos/intro.mp4</pathurl>
            </file>
          </clipitem>
          <clipitem id="clipitem-2">
            <name>city.jpeg</name>
            <start>250</start>
            <end>500</end>
            <file id="file-2">
              <name>city.jpeg</name>
              <pathurl>file:///assets/images/city.jpeg</pathurl>
            </file>
          </clipitem>
        </track>
        <track>
          <generatoritem id="generatoritem-1">
            <name>Text</name>
            <start>250</start>
            <end>375</end>
            <effect>
              <name>Text</name>
              <effectid>Text</effectid>
              <effecttype>generator</effecttype>
              <parameter>
                <parameterid>str</parameterid>
                <name>Text</name>
                <value>Welcome</value>
              </parameter>
            </effect>
          </generatoritem>
        </track>
      </video>
      <audio>
        <track>
          <clipitem id="clipitem-3">
            <name>theme.mp3</name>
            <start>0</start>
            <end>750</end>
            <file id="file-3">
              <name>theme.mp3</name>
              <pathurl>file:///assets/music/theme.mp3</pathurl>
            </file>
          </clipitem>
        </track>
      </audio>
    </media>
  </sequence>
</xmeml>
`
