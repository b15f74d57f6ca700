// internal/browser/script.go
package browser

// bindingName is the CDP binding the injected script posts observation
// records through.
const bindingName = "__headerkitEmit"

// observerScript is injected persistently (and evaluated once in the current
// document) to expose the observation entry points the bridge calls through
// Runtime.evaluate. Every platform callback is flattened into one JSON record
// posted through the binding; the Go side owns all interpretation.
const observerScript = `(() => {
  if (window.__headerkitInstalled) { return; }
  window.__headerkitInstalled = true;

  const cleanups = new Map();
  const emit = (record) => {
    if (typeof window.__headerkitEmit === 'function') {
      window.__headerkitEmit(JSON.stringify(record));
    }
  };

  window.__headerkitObserveIntersection = (sub, selector, threshold) => {
    const el = document.querySelector(selector);
    if (!el) { return false; }
    const obs = new IntersectionObserver((entries) => {
      for (const entry of entries) {
        emit({
          kind: 'intersection',
          sub: sub,
          intersecting: entry.isIntersecting,
          top: entry.boundingClientRect.top,
        });
      }
    }, { threshold: threshold });
    obs.observe(el);
    cleanups.set(sub, () => obs.disconnect());
    return true;
  };

  window.__headerkitObserveScroll = (sub) => {
    const fn = () => emit({ kind: 'scroll', sub: sub, top: window.scrollY });
    window.addEventListener('scroll', fn, { passive: true });
    cleanups.set(sub, () => window.removeEventListener('scroll', fn));
    return true;
  };

  window.__headerkitObserveViewport = (sub) => {
    const fn = () => emit({
      kind: 'resize',
      sub: sub,
      width: window.innerWidth,
      height: window.innerHeight,
    });
    window.addEventListener('resize', fn);
    cleanups.set(sub, () => window.removeEventListener('resize', fn));
    return true;
  };

  window.__headerkitObserveResize = (sub, selector) => {
    const el = document.querySelector(selector);
    if (!el) { return false; }
    const obs = new ResizeObserver((entries) => {
      for (const entry of entries) {
        const rect = entry.target.getBoundingClientRect();
        emit({
          kind: 'resize',
          sub: sub,
          target: selector,
          width: rect.width,
          height: rect.height,
        });
      }
    });
    obs.observe(el);
    cleanups.set(sub, () => obs.disconnect());
    return true;
  };

  window.__headerkitObserveChildren = (sub, selector) => {
    const el = document.querySelector(selector);
    if (!el) { return false; }
    const members = () => Array.from(el.children).map((child) =>
      child.id ? ('#' + child.id) : child.tagName.toLowerCase());
    const obs = new MutationObserver(() => {
      emit({ kind: 'children', sub: sub, members: members() });
    });
    obs.observe(el, { childList: true });
    cleanups.set(sub, () => obs.disconnect());
    emit({ kind: 'children', sub: sub, members: members() });
    return true;
  };

  window.__headerkitObserveOverflow = (sub, selector) => {
    const el = document.querySelector(selector);
    if (!el) { return false; }
    const fn = (ev) => emit({
      kind: 'overflow',
      sub: sub,
      minimumReached: !!(ev.detail && ev.detail.minimumReached),
    });
    el.addEventListener('overflow-minimum', fn);
    cleanups.set(sub, () => el.removeEventListener('overflow-minimum', fn));
    return true;
  };

  window.__headerkitUnobserve = (sub) => {
    const cleanup = cleanups.get(sub);
    if (cleanup) {
      cleanup();
      cleanups.delete(sub);
    }
  };
})();`
