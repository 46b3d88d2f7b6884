// internal/evasion/script.go
package evasion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/AgentScrapexter/internal/fingerprint"
)

// ScriptVersion identifies the masking payload generation. Bump when the
// rendered script changes shape so injected-script provenance is traceable
// in logs.
const ScriptVersion = "2"

// ScriptBuilder renders the run-before-page-script masking payload for a
// profile. The payload is assembled from independent fragments so each
// evasion level can enable a different subset.
type ScriptBuilder struct {
	level Level
}

// NewScriptBuilder creates a builder for the given evasion level.
func NewScriptBuilder(level Level) *ScriptBuilder {
	return &ScriptBuilder{level: level}
}

// Build renders the full masking script for a profile. The script is
// idempotent: a guard variable prevents double application when the page
// is re-navigated within the same context.
func (b *ScriptBuilder) Build(profile fingerprint.Profile) string {
	var sb strings.Builder

	sb.WriteString("(function() {\n")
	sb.WriteString("  'use strict';\n")
	sb.WriteString("  if (window.__maskApplied) { return; }\n")
	sb.WriteString("  window.__maskApplied = '" + ScriptVersion + "';\n\n")

	sb.WriteString(navigatorFragment(profile))

	if b.level >= LevelStandard {
		sb.WriteString(pluginsFragment(profile))
		sb.WriteString(chromeRuntimeFragment())
	}
	if b.level >= LevelAdvanced {
		sb.WriteString(webglFragment(profile))
		sb.WriteString(canvasFragment(profile))
	}
	if b.level >= LevelStealth {
		sb.WriteString(audioFragment(profile))
		sb.WriteString(hardwareFragment(profile))
	}

	sb.WriteString("})();\n")
	return sb.String()
}

// navigatorFragment hides webdriver and pins platform and languages. This
// fragment is present at every level because navigator.webdriver is the
// first thing any detector checks.
func navigatorFragment(p fingerprint.Profile) string {
	langs, _ := json.Marshal(p.Languages)
	return fmt.Sprintf(`  Object.defineProperty(navigator, 'webdriver', {
    get: () => undefined,
    configurable: true
  });
  Object.defineProperty(navigator, 'platform', {
    get: () => %q,
    configurable: true
  });
  Object.defineProperty(navigator, 'language', {
    get: () => %q,
    configurable: true
  });
  Object.defineProperty(navigator, 'languages', {
    get: () => %s,
    configurable: true
  });

`, p.Platform, p.Language, langs)
}

// pluginsFragment reports the profile's plugin names. An empty plugin array
// is itself a headless signal, so even a minimal list helps.
func pluginsFragment(p fingerprint.Profile) string {
	names, _ := json.Marshal(p.Plugins)
	return fmt.Sprintf(`  const pluginNames = %s;
  const fakePlugins = pluginNames.map(function(name, i) {
    return { name: name, description: name, filename: name.toLowerCase().replace(/ /g, '-') + '.plugin', length: 1 };
  });
  fakePlugins.item = function(i) { return this[i] || null; };
  fakePlugins.namedItem = function(n) {
    return this.find(function(pl) { return pl.name === n; }) || null;
  };
  Object.defineProperty(navigator, 'plugins', {
    get: () => fakePlugins,
    configurable: true
  });

`, names)
}

// chromeRuntimeFragment supplies the window.chrome object headless Chrome
// lacks.
func chromeRuntimeFragment() string {
	return `  if (!window.chrome) {
    window.chrome = {};
  }
  if (!window.chrome.runtime) {
    window.chrome.runtime = {
      connect: function() { return { onMessage: { addListener: function() {} }, postMessage: function() {}, disconnect: function() {} }; },
      sendMessage: function() {},
      onMessage: { addListener: function() {}, removeListener: function() {} }
    };
  }
  if (!window.chrome.loadTimes) {
    window.chrome.loadTimes = function() {
      return { commitLoadTime: Date.now() / 1000, connectionInfo: 'h2', wasFetchedViaSpdy: true };
    };
  }

`
}

// webglFragment pins the UNMASKED_VENDOR_WEBGL and UNMASKED_RENDERER_WEBGL
// parameters to the profile's hardware identity.
func webglFragment(p fingerprint.Profile) string {
	return fmt.Sprintf(`  const patchGL = function(proto) {
    if (!proto) { return; }
    const getParameter = proto.getParameter;
    proto.getParameter = function(parameter) {
      if (parameter === 37445) { return %q; }
      if (parameter === 37446) { return %q; }
      return getParameter.call(this, parameter);
    };
  };
  patchGL(window.WebGLRenderingContext && WebGLRenderingContext.prototype);
  patchGL(window.WebGL2RenderingContext && WebGL2RenderingContext.prototype);

`, p.WebGLVendor, p.WebGLRenderer)
}

// canvasFragment perturbs canvas readback so the rendered pixels hash to a
// value unique to this profile rather than to the real GPU stack. The noise
// is seeded from the profile's canvas hash, keeping it stable within a
// session.
func canvasFragment(p fingerprint.Profile) string {
	return fmt.Sprintf(`  const canvasSeed = %q;
  let seedAcc = 0;
  for (let i = 0; i < canvasSeed.length; i++) { seedAcc = (seedAcc * 31 + canvasSeed.charCodeAt(i)) >>> 0; }
  const origGetImageData = CanvasRenderingContext2D.prototype.getImageData;
  CanvasRenderingContext2D.prototype.getImageData = function(x, y, w, h) {
    const data = origGetImageData.call(this, x, y, w, h);
    for (let i = 0; i < data.data.length; i += 997) {
      data.data[i] = data.data[i] ^ ((seedAcc >> (i %% 8)) & 1);
    }
    return data;
  };
  const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function() {
    const ctx = this.getContext('2d');
    if (ctx && this.width > 0 && this.height > 0) {
      ctx.getImageData(0, 0, Math.min(this.width, 2), Math.min(this.height, 2));
    }
    return origToDataURL.apply(this, arguments);
  };

`, p.CanvasHash)
}

// audioFragment perturbs AnalyserNode frequency readback, seeded from the
// profile's audio hash.
func audioFragment(p fingerprint.Profile) string {
	return fmt.Sprintf(`  if (window.AnalyserNode) {
    const audioSeed = %q;
    let audioAcc = 0;
    for (let i = 0; i < audioSeed.length; i++) { audioAcc = (audioAcc * 31 + audioSeed.charCodeAt(i)) >>> 0; }
    const origFreq = AnalyserNode.prototype.getFloatFrequencyData;
    AnalyserNode.prototype.getFloatFrequencyData = function(array) {
      origFreq.call(this, array);
      for (let i = 0; i < array.length; i += 97) {
        array[i] = array[i] + ((audioAcc >> (i %% 8)) & 1) * 1e-5;
      }
    };
  }

`, p.AudioHash)
}

// hardwareFragment pins hardwareConcurrency and deviceMemory to the
// profile's hardware identity.
func hardwareFragment(p fingerprint.Profile) string {
	return fmt.Sprintf(`  Object.defineProperty(navigator, 'hardwareConcurrency', {
    get: () => %d,
    configurable: true
  });
  if ('deviceMemory' in navigator) {
    Object.defineProperty(navigator, 'deviceMemory', {
      get: () => %d,
      configurable: true
    });
  }

`, p.HardwareConcurrency, p.DeviceMemory)
}
